package json

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/viant/tagly/format/text"
)

func TestCaseFormat_Marshal(t *testing.T) {
	type sample struct {
		UserName string
		Nick     string `json:"nickName"`
	}
	in := sample{UserName: "alice", Nick: "a"}
	data, err := Marshal(in, WithCaseFormat(text.CaseFormatLowerUnderscore))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	got := string(data)
	if got != `{"user_name":"alice","nickName":"a"}` {
		t.Fatalf("unexpected output: %s", got)
	}
}

func TestCaseFormat_Unmarshal(t *testing.T) {
	type sample struct {
		UserName string
		Nick     string `json:"nickName"`
	}
	var out sample
	err := Unmarshal([]byte(`{"user_name":"alice","nickName":"a"}`), &out, WithCaseFormat(text.CaseFormatLowerUnderscore))
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if out.UserName != "alice" || out.Nick != "a" {
		t.Fatalf("unexpected value: %#v", out)
	}
}

func TestFormatTag_PerFieldMarshal(t *testing.T) {
	type meta struct {
		TraceID string `json:"traceId"`
	}
	type payload struct {
		UserName  string    `format:"caseFormat=lowerUnderscore"`
		CreatedAt time.Time `format:"dateFormat=yyyy-MM-dd"`
		Secret    string    `format:"ignore=true"`
		Note      string    `format:"omitempty=true"`
		Meta      meta      `format:"inline=true"`
	}

	in := payload{
		UserName:  "alice",
		CreatedAt: time.Date(2026, 2, 24, 10, 11, 12, 0, time.UTC),
		Secret:    "hidden",
		Meta:      meta{TraceID: "abc"},
	}
	data, err := Marshal(in)
	require.NoError(t, err)
	require.JSONEq(t, `{"user_name":"alice","CreatedAt":"2026-02-24","traceId":"abc"}`, string(data))
}

func TestFormatTag_PerFieldUnmarshal(t *testing.T) {
	type meta struct {
		TraceID string `json:"traceId"`
	}
	type payload struct {
		UserName  string    `format:"caseFormat=lowerUnderscore"`
		CreatedAt time.Time `format:"timeLayout=2006-01-02,name=created_at"`
		Secret    string    `format:"ignore=true"`
		Meta      meta      `format:"inline=true"`
	}

	var out payload
	err := Unmarshal([]byte(`{"user_name":"alice","created_at":"2026-02-24","traceId":"abc","Secret":"x"}`), &out)
	require.NoError(t, err)
	require.Equal(t, "alice", out.UserName)
	require.Equal(t, "abc", out.Meta.TraceID)
	require.Equal(t, "", out.Secret)
	require.Equal(t, time.Date(2026, 2, 24, 0, 0, 0, 0, time.UTC), out.CreatedAt.UTC())
}

func TestTimeLayout_TopLevel(t *testing.T) {
	tm := time.Date(2026, 2, 24, 10, 11, 12, 0, time.UTC)

	data, err := Marshal(tm, WithTimeLayout("2006-01-02"))
	require.NoError(t, err)
	require.Equal(t, `"2026-02-24"`, string(data))

	var out time.Time
	err = Unmarshal([]byte(`"2026-02-24"`), &out, WithTimeLayout("2006-01-02"))
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 2, 24, 0, 0, 0, 0, time.UTC), out.UTC())
}

func TestTagPrecedence_JSONBeatsFormatNameCase(t *testing.T) {
	type payload struct {
		A int `json:"json_name" format:"name=format_name,caseFormat=upperUnderscore"`
	}

	data, err := Marshal(payload{A: 7})
	require.NoError(t, err)
	require.JSONEq(t, `{"json_name":7}`, string(data))

	var out payload
	require.NoError(t, Unmarshal([]byte(`{"json_name":9}`), &out))
	require.Equal(t, 9, out.A)

	out = payload{}
	require.NoError(t, Unmarshal([]byte(`{"format_name":9}`), &out))
	require.Equal(t, 0, out.A)
}

func TestTagPrecedence_GraphBeatsJSON(t *testing.T) {
	type payload struct {
		A int `json:"json_name" graph:"name=graph_name"`
	}

	data, err := Marshal(payload{A: 7})
	require.NoError(t, err)
	require.JSONEq(t, `{"graph_name":7}`, string(data))

	var out payload
	require.NoError(t, Unmarshal([]byte(`{"graph_name":9}`), &out))
	require.Equal(t, 9, out.A)
}

func TestTagPrecedence_JSONExplicitEmptyBeatsFormatCase(t *testing.T) {
	type payload struct {
		UserID int `json:",omitempty" format:"caseFormat=lowerUnderscore"`
	}

	data, err := Marshal(payload{UserID: 1})
	require.NoError(t, err)
	require.JSONEq(t, `{"UserID":1}`, string(data))

	data, err = Marshal(payload{UserID: 1}, WithCaseFormat(text.CaseFormatLowerCamel))
	require.NoError(t, err)
	require.JSONEq(t, `{"UserID":1}`, string(data))
}

func TestTagPrecedence_IgnoreBeatsInline(t *testing.T) {
	type embedded struct {
		X int `json:"x"`
	}
	type payload struct {
		Embedded embedded `jsonx:"inline" format:"ignore=true"`
		Y        int      `json:"y"`
	}

	data, err := Marshal(payload{Embedded: embedded{X: 1}, Y: 2})
	require.NoError(t, err)
	require.JSONEq(t, `{"y":2}`, string(data))

	var out payload
	require.NoError(t, Unmarshal([]byte(`{"x":9,"y":3}`), &out))
	require.Equal(t, 0, out.Embedded.X)
	require.Equal(t, 3, out.Y)
}

func TestTagPrecedence_FormatInlineWithoutJSONX(t *testing.T) {
	type embedded struct {
		X int `json:"x"`
	}
	type payload struct {
		Embedded embedded `format:"inline=true"`
		Y        int      `json:"y"`
	}

	data, err := Marshal(payload{Embedded: embedded{X: 1}, Y: 2})
	require.NoError(t, err)
	require.JSONEq(t, `{"x":1,"y":2}`, string(data))

	var out payload
	require.NoError(t, Unmarshal([]byte(`{"x":9,"y":3}`), &out))
	require.Equal(t, 9, out.Embedded.X)
	require.Equal(t, 3, out.Y)
}

func TestTagPrecedence_EmbeddedShadowing(t *testing.T) {
	type Base struct {
		ID   int
		Name string
	}
	type payload struct {
		Base
		Name string
	}

	data, err := Marshal(payload{Base: Base{ID: 1, Name: "inner"}, Name: "outer"})
	require.NoError(t, err)
	require.JSONEq(t, `{"ID":1,"Name":"outer"}`, string(data))

	var out payload
	require.NoError(t, Unmarshal([]byte(`{"ID":2,"Name":"x"}`), &out))
	require.Equal(t, 2, out.ID)
	require.Equal(t, "x", out.Name)
	require.Equal(t, "", out.Base.Name)
}

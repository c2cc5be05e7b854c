package prompts

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedFileDefinesEveryKey(t *testing.T) {
	for _, key := range All {
		t.Run(string(key), func(t *testing.T) {
			p, err := Get(key)
			require.NoError(t, err)
			assert.NotEmpty(t, p)
		})
	}
}

func TestGet(t *testing.T) {
	p, err := Get(MorningBrief)
	require.NoError(t, err)
	assert.Contains(t, p, "top 3 leads")

	_, err = Get(Key("nonexistent-key"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_PanicsOnUnknownKey(t *testing.T) {
	assert.Panics(t, func() { MustGet(Key("nope")) })
	assert.NotPanics(t, func() { MustGet(Persona) })
}

func TestRender(t *testing.T) {
	out, err := Render(Query, map[string]string{"Question": "Which deals are at risk?"})
	require.NoError(t, err)
	assert.Contains(t, out, "User question: Which deals are at risk?")
	assert.NotContains(t, out, "{{")
}

func TestRender_QuestionIsNotReparsed(t *testing.T) {
	out, err := Render(Query, map[string]string{"Question": "what is {{.Secret}}?"})
	require.NoError(t, err)
	assert.Contains(t, out, "what is {{.Secret}}?")
}

func TestRender_MissingField(t *testing.T) {
	_, err := Render(Query, map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rendering prompt query")
}

func TestLoadFrom(t *testing.T) {
	full := `{"persona":"p","morning-brief":"m","lead-score":"l","weekly-report":"w","query":"q"}`

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "complete", content: full},
		{name: "missing keys", content: `{"persona":"p","query":"q"}`, wantErr: "missing lead-score, morning-brief, weekly-report"},
		{name: "blank value", content: `{"persona":" ","morning-brief":"m","lead-score":"l","weekly-report":"w","query":"q"}`, wantErr: "missing persona"},
		{name: "bad json", content: `{`, wantErr: "failed to parse prompt file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{"p.json": &fstest.MapFile{Data: []byte(tt.content)}}
			prompts, err := loadFrom(fsys, "p.json")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, prompts, len(All))
		})
	}

	_, err := loadFrom(fstest.MapFS{}, "absent.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

package stdlib_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcrsr/rill/pkg/rill"
	"github.com/rcrsr/rill/pkg/rill/stdlib"
)

func runScript(t *testing.T, source string) string {
	t.Helper()
	std := stdlib.New()
	t.Cleanup(std.Dispose)

	script, err := rill.Parse(source)
	require.NoError(t, err)

	rtc := rill.NewContext(rill.ContextOptions{Functions: std.Functions})
	result, err := rill.Execute(context.Background(), script, rtc)
	require.NoError(t, err)
	return result.Value.String()
}

func TestJSONRoundTrip(t *testing.T) {
	assert.Equal(t, `{"a":1,"b":"x"}`, runScript(t, `json::encode([a: 1, b: "x"])`))
	assert.Equal(t, `[1,2,3]`, runScript(t, `json::encode([1, 2, 3])`))
	assert.Equal(t, "2", runScript(t, `json::decode("\{\"a\": 2}") -> .a`))
	assert.Equal(t, "3", runScript(t, `json::decode("[1,2,3]") -> .length`))
}

func TestJSONGetSet(t *testing.T) {
	assert.Equal(t, "deep", runScript(t, `json::get("\{\"a\":\{\"b\":\"deep\"}}", "a.b")`))
	assert.Equal(t, "null", runScript(t, `json::get("\{}", "missing")`))
	assert.Equal(t, `{"a":5}`, runScript(t, `json::set("\{}", "a", 5)`))
}

func TestJSONDecodeInvalid(t *testing.T) {
	std := stdlib.New()
	t.Cleanup(std.Dispose)
	script, err := rill.Parse(`json::decode("\{nope")`)
	require.NoError(t, err)
	rtc := rill.NewContext(rill.ContextOptions{Functions: std.Functions})
	_, err = rill.Execute(context.Background(), script, rtc)
	assert.Error(t, err)
}

func TestStrHelpers(t *testing.T) {
	assert.Equal(t, "ababab", runScript(t, `str::repeat("ab", 3)`))
	assert.Equal(t, "   x", runScript(t, `str::pad("x", 4)`))
}

func TestListHelpers(t *testing.T) {
	assert.Equal(t, "[0, 1, 2]", runScript(t, `list::range(0, 3)`))
	assert.Equal(t, "6", runScript(t, `list::sum([1, 2, 3])`))
	assert.Equal(t, "[]", runScript(t, `list::range(3, 0)`))
}

func TestComposedPipeline(t *testing.T) {
	source := `list::range(1, 5) -> map |x| ($x * $x) -> filter |x| ($x > 4) -> json::encode($)`
	assert.Equal(t, `[9,16]`, runScript(t, source))
}

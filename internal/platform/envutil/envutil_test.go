package envutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationParsesUnitsAndSeconds(t *testing.T) {
	t.Setenv("DW_TEST_DURATION", "250ms")
	assert.Equal(t, 250*time.Millisecond, Duration("DW_TEST_DURATION", time.Second))

	t.Setenv("DW_TEST_DURATION", "7")
	assert.Equal(t, 7*time.Second, Duration("DW_TEST_DURATION", time.Second))

	t.Setenv("DW_TEST_DURATION", "soon")
	assert.Equal(t, time.Second, Duration("DW_TEST_DURATION", time.Second))
}

func TestBoolAndList(t *testing.T) {
	t.Setenv("DW_TEST_BOOL", "off")
	assert.False(t, Bool("DW_TEST_BOOL", true))

	t.Setenv("DW_TEST_LIST", " http://a.test, ,http://b.test ")
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, List("DW_TEST_LIST"))
}

func TestLoadOverlayDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("DW_OVERLAY_PORT: 9090\nDW_OVERLAY_MODE: production\n"), 0o600))

	t.Setenv("DW_OVERLAY_MODE", "development")
	os.Unsetenv("DW_OVERLAY_PORT")
	t.Cleanup(func() { os.Unsetenv("DW_OVERLAY_PORT") })

	applied, err := LoadOverlay(path)
	require.NoError(t, err)
	sort.Strings(applied)

	assert.Equal(t, []string{"DW_OVERLAY_PORT"}, applied)
	assert.Equal(t, 9090, Int("DW_OVERLAY_PORT", 0))
	assert.Equal(t, "development", String("DW_OVERLAY_MODE", ""))
}

package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Quoting Tests
// =============================================================================

func TestQuote_SafeTokensUntouched(t *testing.T) {
	for _, s := range []string{"docker", "-y", "/etc/nginx/sites-available/myapp.conf", "a=b", "127.0.0.1:8080:8080"} {
		assert.Equal(t, s, Quote(s))
	}
}

func TestQuote_UnsafeTokens(t *testing.T) {
	assert.Equal(t, `'a b'`, Quote("a b"))
	assert.Equal(t, `'$(rm -rf /)'`, Quote("$(rm -rf /)"))
	assert.Equal(t, `'it'\''s'`, Quote("it's"))
	assert.Equal(t, `''`, Quote(""))
}

// =============================================================================
// Render Tests
// =============================================================================

func TestRender_Simple(t *testing.T) {
	cmd := Cmd("docker", "compose", "up", "-d")
	assert.Equal(t, "docker compose up -d", cmd.Render())
}

func TestRender_WorkingDir(t *testing.T) {
	cmd := Cmd("docker", "build", "-t", "dockport/myapp:latest", ".").InDir("/opt/dockport/apps/myapp")
	assert.Equal(t, "cd /opt/dockport/apps/myapp && docker build -t dockport/myapp:latest .", cmd.Render())
}

func TestRender_Sudo(t *testing.T) {
	cmd := Cmd("systemctl", "reload", "nginx").AsRoot()
	assert.Equal(t, "sudo systemctl reload nginx", cmd.Render())
}

func TestRender_QuotesInjectionAttempt(t *testing.T) {
	cmd := Cmd("docker", "rm", "-f", "app; rm -rf /")
	assert.Equal(t, `docker rm -f 'app; rm -rf /'`, cmd.Render())
}

func TestRender_ImmutableReceivers(t *testing.T) {
	base := Cmd("ls")
	_ = base.AsRoot()
	_ = base.InDir("/tmp")
	assert.False(t, base.Sudo)
	assert.Empty(t, base.Dir)
}

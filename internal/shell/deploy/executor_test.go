package deploy

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpetrov/dockport/internal/core/domain"
	"github.com/mpetrov/dockport/internal/core/plan"
)

// =============================================================================
// Test Helpers
// =============================================================================

type fakeRunner struct {
	calls   []string
	respond func(line string) plan.Result
}

func (f *fakeRunner) Run(_ context.Context, cmd plan.Command) (plan.Result, error) {
	line := cmd.Render()
	f.calls = append(f.calls, line)
	if f.respond != nil {
		return f.respond(line), nil
	}
	return plan.Result{}, nil
}

func (f *fakeRunner) indexOf(substr string) int {
	for i, c := range f.calls {
		if strings.Contains(c, substr) {
			return i
		}
	}
	return -1
}

func (f *fakeRunner) called(substr string) bool { return f.indexOf(substr) >= 0 }

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func composeDescriptor() domain.ProjectDescriptor {
	return domain.ProjectDescriptor{
		RepoName:       "myapp",
		LocalPath:      "/tmp/work/myapp",
		RemotePath:     "/opt/dockport/apps/myapp",
		Mode:           domain.ModeCompose,
		Branch:         "main",
		DescriptorFile: "docker-compose.yml",
	}
}

func singleDescriptor() domain.ProjectDescriptor {
	d := composeDescriptor()
	d.Mode = domain.ModeSingleContainer
	d.DescriptorFile = "Dockerfile"
	return d
}

func testTarget() domain.DeploymentTarget {
	return domain.DeploymentTarget{
		RemoteUser: "deploy",
		RemoteHost: "203.0.113.10",
		SSHKeyPath: "/k",
		AppPort:    8080,
	}
}

// =============================================================================
// Compose Mode Tests
// =============================================================================

func TestDeployCompose_CommandSequence(t *testing.T) {
	r := &fakeRunner{}
	err := NewExecutor(r, testLogger()).Deploy(context.Background(), composeDescriptor(), testTarget())
	require.NoError(t, err)

	want := []string{
		"cd /opt/dockport/apps/myapp && docker compose down --remove-orphans",
		"cd /opt/dockport/apps/myapp && docker compose pull",
		"cd /opt/dockport/apps/myapp && docker compose build",
		"cd /opt/dockport/apps/myapp && docker compose up -d",
	}
	assert.Equal(t, want, r.calls)
}

func TestDeployCompose_TeardownAndPullFailuresTolerated(t *testing.T) {
	r := &fakeRunner{respond: func(line string) plan.Result {
		if strings.Contains(line, "compose down") || strings.Contains(line, "compose pull") {
			return plan.Result{ExitCode: 1, Stdout: "no such project"}
		}
		return plan.Result{}
	}}

	err := NewExecutor(r, testLogger()).Deploy(context.Background(), composeDescriptor(), testTarget())
	require.NoError(t, err)
	assert.True(t, r.called("compose up -d"))
}

func TestDeployCompose_BuildFailureIsFatal(t *testing.T) {
	r := &fakeRunner{respond: func(line string) plan.Result {
		if strings.Contains(line, "compose build") {
			return plan.Result{ExitCode: 17, Stdout: "failed to solve: base image not found"}
		}
		return plan.Result{}
	}}

	err := NewExecutor(r, testLogger()).Deploy(context.Background(), composeDescriptor(), testTarget())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDeploy)
	assert.False(t, r.called("compose up"), "up must not run after a failed build")
}

// =============================================================================
// Single-Container Mode Tests
// =============================================================================

func TestDeploySingle_FreshHost(t *testing.T) {
	r := &fakeRunner{} // container lookup returns empty stdout: not present
	err := NewExecutor(r, testLogger()).Deploy(context.Background(), singleDescriptor(), testTarget())
	require.NoError(t, err)

	assert.False(t, r.called("docker rm"), "nothing to remove on a fresh host")
	assert.True(t, r.called("cd /opt/dockport/apps/myapp && docker build -t dockport/myapp:latest ."))
	assert.True(t, r.called("docker run -d --name dockport_myapp --restart unless-stopped -p 127.0.0.1:8080:8080 dockport/myapp:latest"))
}

func TestDeploySingle_ReplacesPriorContainer(t *testing.T) {
	r := &fakeRunner{respond: func(line string) plan.Result {
		if strings.Contains(line, "docker ps -aq") {
			return plan.Result{Stdout: "a1b2c3d4\n"}
		}
		return plan.Result{}
	}}

	err := NewExecutor(r, testLogger()).Deploy(context.Background(), singleDescriptor(), testTarget())
	require.NoError(t, err)

	rm := r.indexOf("docker rm -f dockport_myapp")
	build := r.indexOf("docker build")
	run := r.indexOf("docker run")
	require.GreaterOrEqual(t, rm, 0)
	assert.Less(t, rm, build)
	assert.Less(t, build, run)
}

func TestDeploySingle_LoopbackBindingUsesAppPort(t *testing.T) {
	target := testTarget()
	target.AppPort = 3000

	r := &fakeRunner{}
	err := NewExecutor(r, testLogger()).Deploy(context.Background(), singleDescriptor(), target)
	require.NoError(t, err)
	assert.True(t, r.called("-p 127.0.0.1:3000:3000"))
}

func TestDeploySingle_RunFailureIsFatal(t *testing.T) {
	r := &fakeRunner{respond: func(line string) plan.Result {
		if strings.Contains(line, "docker run") {
			return plan.Result{ExitCode: 125, Stdout: "port is already allocated"}
		}
		return plan.Result{}
	}}

	err := NewExecutor(r, testLogger()).Deploy(context.Background(), singleDescriptor(), testTarget())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDeploy)
	assert.Contains(t, err.Error(), "port is already allocated")
}

func TestDeploy_SudoRetryOnSocketDenial(t *testing.T) {
	r := &fakeRunner{respond: func(line string) plan.Result {
		if strings.HasPrefix(line, "docker build") || strings.HasPrefix(line, "cd ") && strings.Contains(line, "&& docker build") {
			return plan.Result{ExitCode: 1, Stdout: "permission denied while trying to connect to the Docker daemon socket"}
		}
		return plan.Result{}
	}}

	err := NewExecutor(r, testLogger()).Deploy(context.Background(), singleDescriptor(), testTarget())
	require.NoError(t, err)
	assert.True(t, r.called("sudo docker build"))
}

func TestDeploy_UnknownMode(t *testing.T) {
	desc := composeDescriptor()
	desc.Mode = domain.DeploymentMode("vm")

	err := NewExecutor(&fakeRunner{}, testLogger()).Deploy(context.Background(), desc, testTarget())
	assert.ErrorIs(t, err, domain.ErrDeploy)
}

// =============================================================================
// Cleanup Tests
// =============================================================================

func TestCleanup_ComposeProject(t *testing.T) {
	r := &fakeRunner{respond: func(line string) plan.Result {
		switch {
		case strings.HasPrefix(line, "test -d"):
			return plan.Result{}
		case line == "test -f /opt/dockport/apps/myapp/docker-compose.yml":
			return plan.Result{}
		case strings.HasPrefix(line, "test -f"):
			return plan.Result{ExitCode: 1}
		case strings.Contains(line, "docker ps -aq"):
			return plan.Result{Stdout: ""}
		}
		return plan.Result{}
	}}

	err := NewExecutor(r, testLogger()).Cleanup(context.Background(), "myapp")
	require.NoError(t, err)

	assert.True(t, r.called("docker compose down --remove-orphans"))
	assert.True(t, r.called("sudo rm -rf /opt/dockport/apps/myapp"))
}

func TestCleanup_SingleContainerProject(t *testing.T) {
	r := &fakeRunner{respond: func(line string) plan.Result {
		switch {
		case strings.HasPrefix(line, "test -f"):
			return plan.Result{ExitCode: 1}
		case strings.Contains(line, "docker ps -aq"):
			return plan.Result{Stdout: "a1b2c3d4\n"}
		}
		return plan.Result{}
	}}

	err := NewExecutor(r, testLogger()).Cleanup(context.Background(), "myapp")
	require.NoError(t, err)

	assert.False(t, r.called("compose down"))
	assert.True(t, r.called("docker rm -f dockport_myapp"))
	assert.True(t, r.called("sudo rm -rf /opt/dockport/apps/myapp"))
}

func TestCleanup_NothingDeployedIsNoOp(t *testing.T) {
	r := &fakeRunner{respond: func(line string) plan.Result {
		if strings.HasPrefix(line, "test -d") {
			return plan.Result{ExitCode: 1}
		}
		return plan.Result{}
	}}

	err := NewExecutor(r, testLogger()).Cleanup(context.Background(), "myapp")
	require.NoError(t, err)
	assert.Len(t, r.calls, 1, "only the existence probe should run")
}

func TestCleanup_TeardownFailuresDoNotAbort(t *testing.T) {
	r := &fakeRunner{respond: func(line string) plan.Result {
		switch {
		case strings.HasPrefix(line, "test -"):
			return plan.Result{}
		case strings.Contains(line, "docker ps -aq"):
			return plan.Result{Stdout: "a1b2c3d4\n"}
		}
		return plan.Result{ExitCode: 1, Stdout: "daemon unreachable"}
	}}

	err := NewExecutor(r, testLogger()).Cleanup(context.Background(), "myapp")
	assert.NoError(t, err)
	assert.True(t, r.called("sudo rm -rf /opt/dockport/apps/myapp"))
}

//go:build integration

package integration_test

import (
	"context"
	"io/fs"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/holdings-portal/internal/dbtest/postgrestest"
	"github.com/openkcm/holdings-portal/internal/dbtest/valkeytest"
)

type closeFunc func(ctx context.Context)

type infraStat struct {
	ConfigFilePath string
	Procdir        string
	SocketPath     string
	Cfg            map[string]any
	DB             *pgxpool.Pool

	closeFuncs []closeFunc
}

func initInfra(t *testing.T, exeName string) (istat infraStat) {
	t.Helper()

	// The config is read from $PWD/config.yaml, so every process runs in its
	// own subdirectory.
	wd, err := os.Getwd()
	require.NoError(t, err, "failed to get wd")
	istat.Procdir = filepath.Join(wd, exeName+"-test")
	istat.ConfigFilePath = filepath.Join(istat.Procdir, "config.yaml")

	err = os.MkdirAll(istat.Procdir, fs.ModePerm)
	require.NoError(t, err, "failed to create a dir for the process")

	err = yaml.Unmarshal(validConfig, &istat.Cfg)
	require.NoError(t, err, "failed to parse config")

	istat.SocketPath = filepath.Join(istat.Procdir, exeName+".sock")
	istat.section("http")["address"] = "unix://" + istat.SocketPath

	return istat
}

func (istat *infraStat) section(name string) map[string]any {
	s, ok := istat.Cfg[name].(map[string]any)
	if !ok {
		s = map[string]any{}
		istat.Cfg[name] = s
	}

	return s
}

func embedded(value string) map[string]any {
	return map[string]any{"source": "embedded", "value": value}
}

// PreparePostgres starts a migrated database and points the database section at it.
func (istat *infraStat) PreparePostgres(t *testing.T) {
	t.Helper()

	pool, pgPort, pgTerminate := postgrestest.Start(t.Context())

	istat.DB = pool
	istat.closeFuncs = append(istat.closeFuncs, pgTerminate)

	db := istat.section("database")
	db["name"] = postgrestest.DBName
	db["port"] = pgPort.Port()
	db["sslMode"] = postgrestest.DBSSLMode
	db["host"] = embedded(postgrestest.DBHost)
	db["user"] = embedded(postgrestest.DBUser)
	db["password"] = embedded(postgrestest.DBPassword)
}

func (istat *infraStat) PrepareValKey(t *testing.T) {
	t.Helper()

	vkClient, vkPort, vkTerminate := valkeytest.Start(t.Context())
	vkClient.Close()

	istat.closeFuncs = append(istat.closeFuncs, vkTerminate)

	vk := istat.section("valkey")
	vk["host"] = embedded(net.JoinHostPort("localhost", vkPort.Port()))
	vk["user"] = embedded("")
	vk["password"] = embedded("")
}

// PrepareConfig writes a config file for running the test into the ConfigFilePath.
func (istat *infraStat) PrepareConfig(t *testing.T) {
	t.Helper()

	data, err := yaml.Marshal(istat.Cfg)
	require.NoError(t, err, "failed to marshal config")

	err = os.WriteFile(istat.ConfigFilePath, data, fs.ModePerm)
	require.NoError(t, err, "failed to write config")
}

// Start runs the binary with the given command in the process directory.
// The process receives SIGTERM when the test ends.
func (istat *infraStat) Start(t *testing.T, ctx context.Context, command string) *exec.Cmd {
	t.Helper()

	currdir, err := os.Getwd()
	require.NoError(t, err, "failed to get wd")

	cmd := exec.CommandContext(ctx, filepath.Join(currdir, binary), command)
	cmd.Dir = istat.Procdir

	cmdOutPath := filepath.Join(currdir, command+".log")
	cmdOut, err := os.Create(cmdOutPath)
	require.NoError(t, err, "failed to create a log file")
	t.Cleanup(func() { cmdOut.Close() })

	cmd.Stdout = cmdOut
	cmd.Stderr = cmdOut
	t.Logf("starting %s. Logs will be saved into %s", command, cmdOutPath)

	require.NoError(t, cmd.Start(), "could not start command")
	t.Cleanup(func() {
		_ = syscall.Kill(cmd.Process.Pid, syscall.SIGTERM)
		_ = cmd.Wait()
	})

	return cmd
}

func (istat *infraStat) Close(ctx context.Context) {
	os.RemoveAll(istat.Procdir)

	for _, close := range istat.closeFuncs {
		close(ctx)
	}
}

package wallpaper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/darkawower/wallscribe/internal/backend"
	"github.com/darkawower/wallscribe/internal/backend/mocks"
	"github.com/darkawower/wallscribe/internal/detect"
	"github.com/darkawower/wallscribe/internal/fetch"
)

type fixedDetector struct {
	kind backend.Kind
	err  error
}

func (d fixedDetector) Detect(context.Context) (backend.Kind, error) {
	return d.kind, d.err
}

type recordingNative struct {
	paths []string
	err   error
}

func (n *recordingNative) Set(path string) error {
	n.paths = append(n.paths, path)
	return n.err
}

func (n *recordingNative) Get() (string, error) {
	if len(n.paths) == 0 {
		return "", nil
	}
	return n.paths[len(n.paths)-1], nil
}

type staticFetcher struct{ data []byte }

func (f staticFetcher) Fetch(context.Context, string) ([]byte, error) { return f.data, nil }

func TestApply_SpawnsBackendCommand(t *testing.T) {
	ctrl := gomock.NewController(t)
	spawner := mocks.NewMockSpawner(ctrl)

	spawner.EXPECT().
		Spawn(backend.Command{Program: "feh", Args: []string{"--bg-fill", "/img/a b.png"}}).
		Return(nil).
		Times(2)

	d := NewDispatcher(fixedDetector{kind: backend.FehTool}, spawner)

	for i := 0; i < 2; i++ {
		kind, err := d.Apply(context.Background(), "/img/a b.png")
		require.NoError(t, err)
		assert.Equal(t, backend.FehTool, kind)
	}
}

func TestApply_RelativePathIsMadeAbsolute(t *testing.T) {
	ctrl := gomock.NewController(t)
	spawner := mocks.NewMockSpawner(ctrl)

	abs, err := filepath.Abs("a.png")
	require.NoError(t, err)

	spawner.EXPECT().
		Spawn(backend.Command{Program: "swaybg", Args: []string{"-i", abs}}).
		Return(nil)

	d := NewDispatcher(fixedDetector{kind: backend.SwayBackgroundDaemon}, spawner)
	_, err = d.Apply(context.Background(), "a.png")
	require.NoError(t, err)
}

func TestApply_DetectionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	spawner := mocks.NewMockSpawner(ctrl)

	d := NewDispatcher(fixedDetector{err: detect.ErrNoBackend}, spawner)

	_, err := d.Apply(context.Background(), "/img/a.png")
	assert.ErrorIs(t, err, detect.ErrNoBackend)
}

func TestApply_SpawnError(t *testing.T) {
	ctrl := gomock.NewController(t)
	spawner := mocks.NewMockSpawner(ctrl)
	spawner.EXPECT().Spawn(gomock.Any()).Return(errors.New("exec: not found"))

	d := NewDispatcher(fixedDetector{kind: backend.NitrogenTool}, spawner)

	kind, err := d.Apply(context.Background(), "/img/a.png")
	require.Error(t, err)
	assert.Equal(t, backend.NitrogenTool, kind)
	assert.ErrorIs(t, err, backend.ErrSpawnFailed)
	assert.Contains(t, err.Error(), "nitrogen")
}

func TestApply_Native(t *testing.T) {
	ctrl := gomock.NewController(t)
	spawner := mocks.NewMockSpawner(ctrl)
	native := &recordingNative{}

	d := NewDispatcher(fixedDetector{kind: backend.NativeOSApi}, spawner, WithNative(native))

	kind, err := d.Apply(context.Background(), "/img/a.png")
	require.NoError(t, err)
	assert.Equal(t, backend.NativeOSApi, kind)
	assert.Equal(t, []string{"/img/a.png"}, native.paths)

	native.err = errors.New("denied")
	_, err = d.Apply(context.Background(), "/img/a.png")
	assert.ErrorContains(t, err, "denied")
}

func TestResolve(t *testing.T) {
	d := NewDispatcher(fixedDetector{kind: backend.PlasmaShellScript}, nil)

	plan, err := d.Resolve(context.Background(), "/img/my pic.png")
	require.NoError(t, err)

	assert.Equal(t, backend.PlasmaShellScript, plan.Backend.Kind)
	assert.Equal(t, "/img/my pic.png", plan.Path)
	assert.Equal(t, "sh", plan.Command.Program)
	assert.Contains(t, plan.Command.Args[1], `/img/my\ pic.png`)
}

func TestApplyFromURL(t *testing.T) {
	ctrl := gomock.NewController(t)
	spawner := mocks.NewMockSpawner(ctrl)
	dir := t.TempDir()

	var spawned backend.Command
	spawner.EXPECT().Spawn(gomock.Any()).DoAndReturn(func(cmd backend.Command) error {
		spawned = cmd
		return nil
	})

	d := NewDispatcher(
		fixedDetector{kind: backend.FehTool},
		spawner,
		WithDownloader(fetch.NewDownloader(staticFetcher{data: []byte("img")}, dir, nil)),
	)

	local, kind, err := d.ApplyFromURL(context.Background(), "http://x/y.unknownext")
	require.NoError(t, err)
	assert.Equal(t, backend.FehTool, kind)

	assert.Regexp(t, `^wallpaper\.\d+\.jpg$`, filepath.Base(local))
	assert.Equal(t, []string{"--bg-fill", local}, spawned.Args)

	data, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, "img", string(data))
}

func TestApplyFromURL_NoDownloader(t *testing.T) {
	d := NewDispatcher(fixedDetector{kind: backend.FehTool}, nil)

	_, _, err := d.ApplyFromURL(context.Background(), "http://x/y.png")
	assert.Error(t, err)
}

package gitlib_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/blametally/pkg/gitlib"
)

// testRepo wraps a real repository for integration testing.
type testRepo struct {
	t      *testing.T
	path   string
	native *git2go.Repository
}

// newTestRepo creates a new test repository in a temp directory.
func newTestRepo(t *testing.T) *testRepo {
	t.Helper()

	dir := t.TempDir()

	repo, err := git2go.InitRepository(dir, false)
	require.NoError(t, err)

	t.Cleanup(repo.Free)

	return &testRepo{t: t, path: dir, native: repo}
}

// createFile creates a file in the working directory.
func (tr *testRepo) createFile(name, content string) {
	tr.t.Helper()

	path := filepath.Join(tr.path, name)
	dir := filepath.Dir(path)

	if dir != tr.path {
		err := os.MkdirAll(dir, 0o755)
		require.NoError(tr.t, err)
	}

	err := os.WriteFile(path, []byte(content), 0o644)
	require.NoError(tr.t, err)
}

// commitAs stages all files and commits them with the given author.
func (tr *testRepo) commitAs(name, email, message string) gitlib.Hash {
	tr.t.Helper()

	index, err := tr.native.Index()
	require.NoError(tr.t, err)

	defer index.Free()

	err = index.AddAll([]string{"*"}, git2go.IndexAddDefault, nil)
	require.NoError(tr.t, err)

	err = index.Write()
	require.NoError(tr.t, err)

	treeID, err := index.WriteTree()
	require.NoError(tr.t, err)

	tree, err := tr.native.LookupTree(treeID)
	require.NoError(tr.t, err)

	defer tree.Free()

	sig := &git2go.Signature{Name: name, Email: email, When: time.Now()}

	var parents []*git2go.Commit

	head, err := tr.native.Head()
	if err == nil {
		headCommit, lookupErr := tr.native.LookupCommit(head.Target())
		require.NoError(tr.t, lookupErr)

		parents = append(parents, headCommit)

		head.Free()
	}

	oid, err := tr.native.CreateCommit("HEAD", sig, sig, message, tree, parents...)
	require.NoError(tr.t, err)

	for _, parent := range parents {
		parent.Free()
	}

	return gitlib.HashFromOid(oid)
}

func (tr *testRepo) commit(message string) gitlib.Hash {
	return tr.commitAs("Test User", "test@example.com", message)
}

func (tr *testRepo) open() *gitlib.Repository {
	tr.t.Helper()

	repo, err := gitlib.OpenRepository(tr.path)
	require.NoError(tr.t, err)

	tr.t.Cleanup(repo.Free)

	return repo
}

func TestHashRoundTrip(t *testing.T) {
	const hexStr = "0123456789abcdef0123456789abcdef01234567"

	hash := gitlib.NewHash(hexStr)

	assert.Equal(t, hexStr, hash.String())
	assert.False(t, hash.IsZero())
	assert.Equal(t, hash, gitlib.HashFromOid(hash.ToOid()))
}

func TestHashZero(t *testing.T) {
	assert.True(t, gitlib.ZeroHash().IsZero())
	assert.Equal(t, gitlib.Hash{}, gitlib.NewHash("not hex"))
}

func TestOpenRepositoryMissing(t *testing.T) {
	_, err := gitlib.OpenRepository(filepath.Join(t.TempDir(), "nope"))

	require.Error(t, err)
}

func TestLoadRepositoryRejectsRemote(t *testing.T) {
	for _, uri := range []string{
		"https://example.com/repo.git",
		"git@example.com:owner/repo.git",
	} {
		_, err := gitlib.LoadRepository(uri)
		require.ErrorIs(t, err, gitlib.ErrRemoteNotSupported, uri)
	}
}

func TestHeadTreeWithoutCommits(t *testing.T) {
	tr := newTestRepo(t)
	repo := tr.open()

	_, err := repo.HeadTree()

	require.Error(t, err, "unborn HEAD cannot be peeled")
}

func TestWalkBlobsPreOrder(t *testing.T) {
	tr := newTestRepo(t)
	tr.createFile("b.txt", "b\n")
	tr.createFile("a/one.txt", "one\n")
	tr.createFile("a/two.txt", "two\n")
	tr.createFile("c.txt", "c\n")
	tr.commit("initial")

	repo := tr.open()

	tree, err := repo.HeadTree()
	require.NoError(t, err)

	defer tree.Free()

	var paths []string

	for entry, walkErr := range tree.WalkBlobs() {
		require.NoError(t, walkErr)
		require.False(t, entry.Hash.IsZero())

		paths = append(paths, entry.Path)
	}

	// Git orders tree entries by name, so the pre-order walk is
	// deterministic: the "a" subtree is descended before the root blobs.
	assert.Equal(t, []string{"a/one.txt", "a/two.txt", "b.txt", "c.txt"}, paths)
}

func TestWalkBlobsEarlyStop(t *testing.T) {
	tr := newTestRepo(t)
	tr.createFile("a.txt", "a\n")
	tr.createFile("b.txt", "b\n")
	tr.commit("initial")

	repo := tr.open()

	tree, err := repo.HeadTree()
	require.NoError(t, err)

	defer tree.Free()

	seen := 0

	for range tree.WalkBlobs() {
		seen++

		break
	}

	assert.Equal(t, 1, seen)
}

func TestBlameFile(t *testing.T) {
	tr := newTestRepo(t)
	tr.createFile("main.go", "package main\n\nfunc main() {}\n")
	tr.commit("initial")

	repo := tr.open()

	hunks, err := repo.BlameFile("main.go")
	require.NoError(t, err)
	require.NotEmpty(t, hunks)

	total := 0
	for _, hunk := range hunks {
		total += hunk.Lines

		assert.Equal(t, "test@example.com", hunk.Author.Email)
	}

	assert.Equal(t, 3, total)
}

func TestBlameFileUntracked(t *testing.T) {
	tr := newTestRepo(t)
	tr.createFile("tracked.txt", "x\n")
	tr.commit("initial")

	repo := tr.open()

	_, err := repo.BlameFile("missing.txt")

	require.Error(t, err)
}

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cli struct {
	t          *testing.T
	configPath string
}

type result struct {
	code   int
	out    string
	errOut string
}

func newCLI(t *testing.T) cli {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("LIBRARY_DATABASE_DRIVER", "sqlite")
	t.Setenv("LIBRARY_DATABASE_SQLITE_PATH", filepath.Join(dir, "library.db"))

	configPath := filepath.Join(dir, "library.yaml")
	content := "logging:\n  level: warn\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	return cli{t: t, configPath: configPath}
}

func (c cli) run(input string, args ...string) result {
	c.t.Helper()

	var out, errOut bytes.Buffer

	code := run(context.Background(), append([]string{"--config", c.configPath}, args...), strings.NewReader(input), &out, &errOut)

	return result{code: code, out: out.String(), errOut: errOut.String()}
}

func (c cli) mustRun(args ...string) string {
	c.t.Helper()

	res := c.run("", args...)
	require.Equal(c.t, 0, res.code, "stderr: %s", res.errOut)

	return res.out
}

func Test_CLI_Migrate(t *testing.T) {
	// setup
	c := newCLI(t)

	// act
	out := c.mustRun("migrate")

	// assert
	assert.Equal(t, "Schema is up to date.\n", out)
}

func Test_CLI_BookAddAndList(t *testing.T) {
	// setup
	c := newCLI(t)

	// arrange
	c.mustRun("book", "add", "--title", "Dune", "--author", "Frank Herbert", "--quantity", "2")
	c.mustRun("book", "add", "--title", "Dune", "--author", "Frank Herbert")

	// act
	out := c.mustRun("book", "list", "--output", "json")

	// assert
	var books []bookView
	require.NoError(t, json.Unmarshal([]byte(out), &books))
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, int64(3), books[0].Quantity)
	assert.Equal(t, int64(3), books[0].Availability)
}

func Test_CLI_BookList_Empty(t *testing.T) {
	// setup
	c := newCLI(t)

	// act
	out := c.mustRun("book", "list")

	// assert
	assert.Equal(t, "(no books)\n", out)
}

func Test_CLI_BookFind(t *testing.T) {
	// setup
	c := newCLI(t)

	// arrange
	c.mustRun("book", "add", "--title", "Dune", "--author", "Frank Herbert")
	c.mustRun("book", "add", "--title", "Emma", "--author", "Jane Austen")

	// act
	byAuthor := c.mustRun("book", "find", "--author", "Jane Austen")
	byTitle := c.mustRun("book", "find", "--title", "Dune")
	missing := c.run("", "book", "find", "--title", "Ulysses")
	noFilter := c.run("", "book", "find")

	// assert
	assert.Contains(t, byAuthor, "Emma")
	assert.NotContains(t, byAuthor, "Dune")
	assert.Contains(t, byTitle, "Frank Herbert")
	assert.Equal(t, 1, missing.code)
	assert.Contains(t, missing.errOut, "Error: Book not found.")
	assert.Equal(t, 1, noFilter.code)
	assert.Contains(t, noFilter.errOut, "title")
}

func Test_CLI_BorrowShowAndReturn(t *testing.T) {
	// setup
	c := newCLI(t)

	// arrange
	c.mustRun("book", "add", "--title", "Dune", "--author", "Frank Herbert")
	c.mustRun("user", "add", "--id", "7", "--name", "Alice", "--limit", "2")

	// act
	borrowed := c.mustRun("borrow", "--user", "7", "--title", "Dune", "--author", "Frank Herbert", "--output", "json")
	shown := c.mustRun("user", "show", "7", "--output", "json")
	returned := c.mustRun("return", "--user", "7", "--title", "Dune", "--author", "Frank Herbert")

	// assert
	var outcome outcomeView
	require.NoError(t, json.Unmarshal([]byte(borrowed), &outcome))
	assert.True(t, outcome.Success)
	assert.Equal(t, "none", outcome.Kind)
	assert.Equal(t, 1, outcome.Attempts)

	var user userView
	require.NoError(t, json.Unmarshal([]byte(shown), &user))
	assert.Equal(t, int64(1), user.TotalBorrowed)
	require.Len(t, user.ActiveLoans, 1)
	assert.Equal(t, "Dune", user.ActiveLoans[0].Title)

	assert.Equal(t, "Book returned successfully.\n", returned)
}

func Test_CLI_Borrow_RuleViolationIsPrintedOnce(t *testing.T) {
	// setup
	c := newCLI(t)

	// arrange
	c.mustRun("book", "add", "--title", "Dune", "--author", "Frank Herbert")

	// act
	res := c.run("", "borrow", "--user", "99", "--title", "Dune", "--author", "Frank Herbert")

	// assert
	assert.Equal(t, 1, res.code)
	assert.Equal(t, "User not found.\n", res.out)
	assert.NotContains(t, res.errOut, "Error:")
}

func Test_CLI_BookRemove_WithLoanRecords(t *testing.T) {
	// setup
	c := newCLI(t)

	// arrange
	c.mustRun("book", "add", "--title", "Dune", "--author", "Frank Herbert")
	c.mustRun("user", "add", "--id", "1", "--name", "Alice", "--limit", "1")
	c.mustRun("borrow", "--user", "1", "--title", "Dune", "--author", "Frank Herbert")

	// act
	res := c.run("", "book", "remove", "--title", "Dune", "--author", "Frank Herbert")

	// assert
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.errOut, "Error: The book has loan records and cannot be removed.")
}

func Test_CLI_UserShow_RejectsNonNumericID(t *testing.T) {
	// setup
	c := newCLI(t)

	// act
	res := c.run("", "user", "show", "alice")

	// assert
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.errOut, "Error: Invalid input: user id must be a whole number.")
}

func Test_CLI_RejectsUnknownOutputFormat(t *testing.T) {
	// setup
	c := newCLI(t)

	// act
	res := c.run("", "book", "list", "--output", "yaml")

	// assert
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.errOut, "Invalid input")
}

func Test_CLI_Menu_RunsACompleteLoanCycle(t *testing.T) {
	// setup
	c := newCLI(t)

	// arrange
	input := strings.Join([]string{
		"3", "1", "Alice", "2", // add user
		"1", "Dune", "Frank Herbert", "2", // add book
		"9", "1", "Dune", "Frank Herbert", // borrow
		"6", "1", // display user
		"8", "Dune", // find by title
		"10", "1", "Dune", "Frank Herbert", // return
		"10", "1", "Dune", "Frank Herbert", // return again
		"6", "x", // bad id
		"42", // unknown option
		"11",
	}, "\n") + "\n"

	// act
	res := c.run(input, "menu")

	// assert
	require.Equal(t, 0, res.code, "stderr: %s", res.errOut)
	assert.Contains(t, res.out, "Connected to the library database.")
	assert.Contains(t, res.out, "User added/updated.")
	assert.Contains(t, res.out, "Book added/increased successfully.")
	assert.Contains(t, res.out, "Book borrowed successfully.")
	assert.Contains(t, res.out, "  - Dune by Frank Herbert")
	assert.Contains(t, res.out, "Book returned successfully.")
	assert.Contains(t, res.out, "This user has not borrowed this book.")
	assert.Contains(t, res.out, "Invalid input: user id must be a whole number.")
	assert.Contains(t, res.out, "Invalid choice.")
	assert.Contains(t, res.out, "Goodbye.")
	assert.NotContains(t, res.out, "Choose Options", "prompts are only printed on a terminal")
}

func Test_CLI_Menu_StopsAtEndOfInput(t *testing.T) {
	// setup
	c := newCLI(t)

	// act
	res := c.run("4\n", "menu")

	// assert
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.out, "(no books)")
	assert.NotContains(t, res.out, "Goodbye.")
}

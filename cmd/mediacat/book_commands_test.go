package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediacat/internal/api"
)

func TestBookAddListShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "book", "add", "The Left Hand of Darkness",
		"--isbn", "978-0441478125",
		"--author", "Ursula K. Le Guin",
		"--publisher", "Ace Books",
		"--tag", "SF",
		"--series", "Hainish Cycle #4",
		"--read")
	if err != nil {
		t.Fatalf("book add: %v", err)
	}
	requireContains(t, out, "Added book 1")

	out, _, err = runCLI(t, env, "book", "list")
	if err != nil {
		t.Fatalf("book list: %v", err)
	}
	requireContains(t, out, "The Left Hand of Darkness")
	requireContains(t, out, "Ursula K. Le Guin")
	requireContains(t, out, "Hainish Cycle #4")

	out, _, err = runCLI(t, env, "book", "show", "1")
	if err != nil {
		t.Fatalf("book show: %v", err)
	}
	requireContains(t, out, "Ace Books")
	requireContains(t, out, "sf")
	requireContains(t, out, "Read:       yes")
}

func TestBookListFilters(t *testing.T) {
	env := setupCLITestEnv(t)

	mustAdd := func(args ...string) {
		t.Helper()
		if _, _, err := runCLI(t, env, append([]string{"book", "add"}, args...)...); err != nil {
			t.Fatalf("book add %v: %v", args, err)
		}
	}
	mustAdd("Hyperion", "--author", "Dan Simmons", "--read")
	mustAdd("The Fall of Hyperion", "--author", "Dan Simmons")
	mustAdd("Piranesi", "--author", "Susanna Clarke")

	out, _, err := runCLI(t, env, "book", "list", "--unread", "--json")
	if err != nil {
		t.Fatalf("book list --unread: %v", err)
	}
	var unread api.BookListResponse
	if err := json.Unmarshal([]byte(out), &unread); err != nil {
		t.Fatalf("decode unread list: %v", err)
	}
	if len(unread.Books) != 2 {
		t.Fatalf("expected 2 unread books, got %d", len(unread.Books))
	}
	for _, book := range unread.Books {
		if book.Title == "Hyperion" {
			t.Fatal("read book should not appear in unread list")
		}
	}

	out, _, err = runCLI(t, env, "book", "list", "--author", "simmons")
	if err != nil {
		t.Fatalf("book list --author: %v", err)
	}
	requireContains(t, out, "Hyperion")
	if strings.Contains(out, "Piranesi") {
		t.Fatal("author filter should exclude other authors")
	}
}

func TestBookRateTagRemove(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "book", "add", "Blindsight", "--author", "Peter Watts"); err != nil {
		t.Fatalf("book add: %v", err)
	}

	out, _, err := runCLI(t, env, "book", "rate", "1", "4")
	if err != nil {
		t.Fatalf("book rate: %v", err)
	}
	requireContains(t, out, "****")

	if _, _, err := runCLI(t, env, "book", "tag", "1", "hard-sf"); err != nil {
		t.Fatalf("book tag: %v", err)
	}
	out, _, err = runCLI(t, env, "book", "show", "1")
	if err != nil {
		t.Fatalf("book show: %v", err)
	}
	requireContains(t, out, "hard-sf")

	out, _, err = runCLI(t, env, "book", "remove", "1")
	if err != nil {
		t.Fatalf("book remove: %v", err)
	}
	requireContains(t, out, "Removed book 1")

	if _, _, err := runCLI(t, env, "book", "show", "1"); err == nil {
		t.Fatal("expected show of removed book to fail")
	}
}

func TestSearchCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "book", "add", "A Memory Called Empire", "--author", "Arkady Martine"); err != nil {
		t.Fatalf("book add: %v", err)
	}

	out, _, err := runCLI(t, env, "search", "martine")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	requireContains(t, out, "A Memory Called Empire")

	out, _, err = runCLI(t, env, "search", "no-such-book")
	if err != nil {
		t.Fatalf("search empty: %v", err)
	}
	requireContains(t, out, "No matches")
}

func TestBookAddCopiesCover(t *testing.T) {
	env := setupCLITestEnv(t)

	source := filepath.Join(env.baseDir, "left-hand.jpg")
	if err := os.WriteFile(source, []byte("jpeg-bytes"), 0o644); err != nil {
		t.Fatalf("write cover: %v", err)
	}

	out, _, err := runCLI(t, env, "book", "add", "The Left Hand of Darkness",
		"--isbn", "978-0441478125",
		"--cover", source)
	if err != nil {
		t.Fatalf("book add: %v", err)
	}
	requireContains(t, out, "Added book 1")

	dst := filepath.Join(env.libraryDir, "covers", "The Left Hand of Darkness.jpg")
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read copied cover: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Fatalf("unexpected cover contents: %q", data)
	}

	out, _, err = runCLI(t, env, "book", "show", "1")
	if err != nil {
		t.Fatalf("book show: %v", err)
	}
	requireContains(t, out, "Cover:      "+dst)
}

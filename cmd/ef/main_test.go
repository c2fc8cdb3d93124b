package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func Test_parseDate(t *testing.T) {
	t.Parallel()

	got, err := parseDate("07/03/2025")
	if err != nil {
		t.Fatalf("parseDate: %v", err)
	}
	if got.Year() != 2025 || got.Month() != time.March || got.Day() != 7 {
		t.Fatalf("parseDate=%v", got)
	}
	if z, err := parseDate(" "); err != nil || !z.IsZero() {
		t.Fatalf("blank date: %v %v", z, err)
	}
	if _, err := parseDate("2025-03-07"); !errors.Is(err, errUsage) {
		t.Fatalf("want usage error, got %v", err)
	}
}

func Test_parseClock(t *testing.T) {
	t.Parallel()

	got, err := parseClock("18:30")
	if err != nil || got.Hour() != 18 || got.Minute() != 30 {
		t.Fatalf("parseClock=%v err=%v", got, err)
	}
	if z, err := parseClock(""); err != nil || !z.IsZero() {
		t.Fatalf("blank clock: %v %v", z, err)
	}
	if _, err := parseClock("6pm"); !errors.Is(err, errUsage) {
		t.Fatalf("want usage error, got %v", err)
	}
}

func Test_parseFloat_Comma(t *testing.T) {
	t.Parallel()

	v, err := parseFloat(" -8,76 ")
	if err != nil || v != -8.76 {
		t.Fatalf("parseFloat=%v err=%v", v, err)
	}
	if _, err := parseFloat("abc"); err == nil {
		t.Fatalf("want error")
	}
}

func Test_readImage(t *testing.T) {
	t.Parallel()

	if img, err := readImage(""); err != nil || img != nil {
		t.Fatalf("no path: %v %v", img, err)
	}
	p := filepath.Join(t.TempDir(), "cartaz.png")
	if err := os.WriteFile(p, []byte("png"), 0o600); err != nil {
		t.Fatal(err)
	}
	img, err := readImage(p)
	if err != nil {
		t.Fatalf("readImage: %v", err)
	}
	if img.Filename != "cartaz.png" || string(img.Data) != "png" {
		t.Fatalf("image=%+v", img)
	}
	if _, err := readImage(p + ".missing"); err == nil {
		t.Fatalf("want error for missing file")
	}
}

func Test_confirmer(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{"y\n": true, "Sim\n": true, " yes ": true, "n\n": false, "\n": false, "": false}
	for in, want := range cases {
		var out bytes.Buffer
		c := confirmer{in: bufio.NewReader(strings.NewReader(in)), out: &out}
		got, err := c.Confirm(context.Background(), "Excluir?")
		if err != nil {
			t.Fatalf("Confirm(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("Confirm(%q)=%v, want %v", in, got, want)
		}
		if !strings.Contains(out.String(), "Excluir? [y/N]") {
			t.Fatalf("prompt not shown: %q", out.String())
		}
	}

	var out bytes.Buffer
	c := confirmer{in: bufio.NewReader(strings.NewReader("")), out: &out, assumeYes: true}
	if ok, _ := c.Confirm(context.Background(), "Excluir?"); !ok || out.Len() != 0 {
		t.Fatalf("assumeYes must skip the prompt")
	}
}

func Test_printJSON(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	printJSON(&out, map[string]int{"a": 1})
	if !strings.Contains(out.String(), "\"a\": 1") {
		t.Fatalf("printJSON=%q", out.String())
	}
}

func Test_emit_KeepsBlocksWhole(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	c := newCLI(nil, strings.NewReader(""), &out)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.emit(func() {
				out.WriteString("begin\n")
				time.Sleep(time.Millisecond)
				out.WriteString("end\n")
			})
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 16 {
		t.Fatalf("got %d lines: %q", len(lines), out.String())
	}
	for i := 0; i < len(lines); i += 2 {
		if lines[i] != "begin" || lines[i+1] != "end" {
			t.Fatalf("interleaved output at line %d: %q", i, out.String())
		}
	}
}

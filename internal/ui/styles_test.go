package ui

import (
	"strings"
	"testing"

	"github.com/Marcin0203/1und1-recruitment-task/internal/salesman"
)

func TestColorsDefined(t *testing.T) {
	colors := []string{
		string(ColorBg),
		string(ColorSurface),
		string(ColorBorder),
		string(ColorText),
		string(ColorAccent),
	}
	for _, c := range colors {
		if c == "" {
			t.Error("Color should not be empty")
		}
	}
}

func TestInitTheme(t *testing.T) {
	defer InitTheme("dark")

	InitTheme("light")
	if GetCurrentTheme() != ThemeLight {
		t.Errorf("expected light theme, got %s", GetCurrentTheme())
	}
	if ColorBg != lightColors.Bg {
		t.Errorf("expected light background, got %s", ColorBg)
	}

	InitTheme("anything-else")
	if GetCurrentTheme() != ThemeDark {
		t.Errorf("unknown theme should fall back to dark, got %s", GetCurrentTheme())
	}
}

func TestAvatar(t *testing.T) {
	id := salesman.Builtin()[1].ID()
	out := Avatar("B", id)
	if !strings.Contains(out, "B") {
		t.Errorf("avatar should contain its label, got %q", out)
	}
	if Avatar("B", id) != out {
		t.Error("avatar rendering should be stable for the same name")
	}
}

func TestMenuKey(t *testing.T) {
	out := MenuKey("esc", "clear")
	if !strings.Contains(out, "esc") || !strings.Contains(out, "clear") {
		t.Errorf("MenuKey output missing parts: %q", out)
	}
}

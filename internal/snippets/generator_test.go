package snippets_test

import (
	"strings"
	"testing"

	"github.com/formloom/formloom/internal/snippets"
)

var testConfig = snippets.Config{
	Slug:      "contato",
	ServerURL: "https://forms.example.com",
	Mode:      "inline",
}

func TestGenerateHTML(t *testing.T) {
	files, err := snippets.Generate(snippets.FrameworkHTML, testConfig)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(files) != 1 || files[0].Filename != "form-embed.html" {
		t.Fatalf("unexpected files: %+v", files)
	}

	content := files[0].Content
	if !strings.Contains(content, `data-fl-mount="contato"`) {
		t.Errorf("mount point missing:\n%s", content)
	}
	if !strings.Contains(content, "https://forms.example.com/embed.js?form=contato&mode=inline") {
		t.Errorf("script url missing:\n%s", content)
	}
}

func TestGenerateReact(t *testing.T) {
	files, err := snippets.Generate(snippets.FrameworkReact, testConfig)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if files[0].Filename != "FormEmbed.tsx" {
		t.Errorf("unexpected filename: %s", files[0].Filename)
	}

	content := files[0].Content
	for _, want := range []string{"useEffect", "useRef", "export function FormEmbed", "script.remove()"} {
		if !strings.Contains(content, want) {
			t.Errorf("react snippet missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "'use client'") {
		t.Errorf("plain react must not carry the next.js client directive")
	}
}

func TestGenerateNextJS(t *testing.T) {
	files, err := snippets.Generate(snippets.FrameworkNextJS, testConfig)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.HasPrefix(files[0].Content, "'use client';") {
		t.Errorf("next.js snippet must start with the client directive:\n%s", files[0].Content)
	}
}

func TestGenerateVue(t *testing.T) {
	files, err := snippets.Generate(snippets.FrameworkVue, testConfig)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	content := files[0].Content
	for _, want := range []string{"<template>", "onMounted", "onUnmounted", `data-fl-mount="contato"`} {
		if !strings.Contains(content, want) {
			t.Errorf("vue snippet missing %q:\n%s", want, content)
		}
	}
}

func TestGenerateWordPress(t *testing.T) {
	files, err := snippets.Generate(snippets.FrameworkWordPress, testConfig)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	content := files[0].Content
	if !strings.Contains(content, `add_shortcode('formloom'`) {
		t.Errorf("shortcode registration missing:\n%s", content)
	}
	if !strings.Contains(content, `[formloom slug="contato"]`) {
		t.Errorf("usage comment missing:\n%s", content)
	}
}

func TestGenerate_DefaultsModeAndFramework(t *testing.T) {
	files, err := snippets.Generate("unknown", snippets.Config{
		Slug: "contato", ServerURL: "https://forms.example.com",
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	// Unknown frameworks fall back to HTML; empty mode falls back to inline.
	if files[0].Filename != "form-embed.html" {
		t.Errorf("unexpected fallback file: %s", files[0].Filename)
	}
	if !strings.Contains(files[0].Content, "mode=inline") {
		t.Errorf("mode should default to inline:\n%s", files[0].Content)
	}
}

func TestAllFrameworks(t *testing.T) {
	all := snippets.AllFrameworks()
	if len(all) != 5 {
		t.Fatalf("expected 5 frameworks, got %d", len(all))
	}
	for _, fw := range all {
		files, err := snippets.Generate(fw, testConfig)
		if err != nil {
			t.Errorf("%s: Generate failed: %v", fw, err)
			continue
		}
		if len(files) == 0 || files[0].Content == "" {
			t.Errorf("%s: empty snippet", fw)
		}
	}
}

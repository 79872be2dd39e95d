// Package snippets generates copy-paste embed code for the frameworks a
// form is most commonly dropped into.
package snippets

import (
	"bytes"
	"fmt"
	"text/template"
)

type Framework string

const (
	FrameworkHTML      Framework = "html"
	FrameworkReact     Framework = "react"
	FrameworkNextJS    Framework = "nextjs"
	FrameworkVue       Framework = "vue"
	FrameworkWordPress Framework = "wordpress"
)

type Config struct {
	Slug      string
	ServerURL string
	Mode      string // inline, modal or sidebar
}

type SnippetFile struct {
	Filename string
	Content  string
}

type templateData struct {
	Slug      string
	ServerURL string
	Mode      string
	ScriptURL string
}

func Generate(framework Framework, config Config) ([]SnippetFile, error) {
	mode := config.Mode
	if mode == "" {
		mode = "inline"
	}
	data := templateData{
		Slug:      config.Slug,
		ServerURL: config.ServerURL,
		Mode:      mode,
		ScriptURL: fmt.Sprintf("%s/embed.js?form=%s&mode=%s", config.ServerURL, config.Slug, mode),
	}

	switch framework {
	case FrameworkReact:
		return generateReact(data)
	case FrameworkNextJS:
		return generateNextJS(data)
	case FrameworkVue:
		return generateVue(data)
	case FrameworkWordPress:
		return generateWordPress(data)
	default:
		return generateHTML(data)
	}
}

func renderTemplate(name, content string, data templateData) (string, error) {
	tmpl, err := template.New(name).Parse(content)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func generateHTML(data templateData) ([]SnippetFile, error) {
	content := `<!-- formloom: {{.Slug}} -->
<div data-fl-mount="{{.Slug}}"></div>
<script src="{{.ScriptURL}}" defer></script>
`

	rendered, err := renderTemplate("html", content, data)
	if err != nil {
		return nil, err
	}

	return []SnippetFile{
		{Filename: "form-embed.html", Content: rendered},
	}, nil
}

func generateReact(data templateData) ([]SnippetFile, error) {
	content := `import { useEffect, useRef } from 'react';

const SCRIPT_URL = '{{.ScriptURL}}';

export function FormEmbed() {
  const ref = useRef<HTMLDivElement>(null);

  useEffect(() => {
    const script = document.createElement('script');
    script.src = SCRIPT_URL;
    script.defer = true;
    ref.current?.appendChild(script);
    return () => {
      script.remove();
    };
  }, []);

  return <div ref={ref} data-fl-mount="{{.Slug}}" />;
}
`

	rendered, err := renderTemplate("react", content, data)
	if err != nil {
		return nil, err
	}

	return []SnippetFile{
		{Filename: "FormEmbed.tsx", Content: rendered},
	}, nil
}

func generateNextJS(data templateData) ([]SnippetFile, error) {
	files, err := generateReact(data)
	if err != nil {
		return nil, err
	}

	// Next's app router needs the client directive on top.
	files[0].Content = "'use client';\n\n" + files[0].Content
	return files, nil
}

func generateVue(data templateData) ([]SnippetFile, error) {
	content := `<template>
  <div ref="mount" data-fl-mount="{{.Slug}}"></div>
</template>

<script setup lang="ts">
import { ref, onMounted, onUnmounted } from 'vue';

const SCRIPT_URL = '{{.ScriptURL}}';
const mount = ref<HTMLDivElement>();
let script: HTMLScriptElement;

onMounted(() => {
  script = document.createElement('script');
  script.src = SCRIPT_URL;
  script.defer = true;
  mount.value?.appendChild(script);
});

onUnmounted(() => {
  script?.remove();
});
</script>
`

	rendered, err := renderTemplate("vue", content, data)
	if err != nil {
		return nil, err
	}

	return []SnippetFile{
		{Filename: "FormEmbed.vue", Content: rendered},
	}, nil
}

func generateWordPress(data templateData) ([]SnippetFile, error) {
	content := `<?php
// Add to functions.php, then place [formloom slug="{{.Slug}}"] in any page.

function formloom_shortcode($atts) {
    $atts = shortcode_atts(['slug' => '{{.Slug}}', 'mode' => '{{.Mode}}'], $atts);
    $src = esc_url('{{.ServerURL}}/embed.js?form=' . $atts['slug'] . '&mode=' . $atts['mode']);
    $slug = esc_attr($atts['slug']);
    return '<div data-fl-mount="' . $slug . '"></div><script src="' . $src . '" defer></script>';
}
add_shortcode('formloom', 'formloom_shortcode');
`

	rendered, err := renderTemplate("wordpress", content, data)
	if err != nil {
		return nil, err
	}

	return []SnippetFile{
		{Filename: "formloom-shortcode.php", Content: rendered},
	}, nil
}

// AllFrameworks returns all supported frameworks.
func AllFrameworks() []Framework {
	return []Framework{
		FrameworkHTML,
		FrameworkReact,
		FrameworkNextJS,
		FrameworkVue,
		FrameworkWordPress,
	}
}

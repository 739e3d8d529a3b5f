package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	autopublish "github.com/belonio2793/backlinkoo-solar-system-sub002"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/cmd/autopublish/internal/bootstrap"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/generation"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/interfaces"
)

const testConfig = `pipeline:
  inter_item_delay: 0s
rotation:
  strategy: sequential
sites:
  - site_id: meadow
    domain: meadow.test
    blog_enabled: true
  - site_id: orchard
    domain: orchard.test
    blog_enabled: true
  - site_id: archive
    domain: archive.test
    blog_enabled: false
`

func stubModule(t *testing.T) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "autopublish.yaml")
	if err := os.WriteFile(path, []byte(testConfig), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	generator := generation.Func(func(_ context.Context, req interfaces.GenerationRequest) (*interfaces.GeneratedContent, error) {
		return &interfaces.GeneratedContent{
			Title:   "Guide to " + req.Keyword,
			Content: "## Getting started\n\nPanels on the roof pay back faster than most people expect.",
		}, nil
	})

	var shared *bootstrap.Module
	original := moduleBuilder
	moduleBuilder = func(ctx context.Context, opts bootstrap.Options) (*bootstrap.Module, error) {
		if shared != nil {
			return shared, nil
		}
		opts.ConfigPath = path
		opts.Extra = append(opts.Extra, autopublish.WithGenerator(generator))
		module, err := bootstrap.BuildModule(ctx, opts)
		if err != nil {
			return nil, err
		}
		shared = module
		return module, nil
	}
	t.Cleanup(func() { moduleBuilder = original })
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func publishArgs(extra ...string) []string {
	args := []string{
		"publish",
		"--campaign", "rooftop",
		"--sites", "meadow,orchard,archive",
		"--keyword", "home solar panels",
		"--target-url", "https://example.com/solar",
	}
	return append(args, extra...)
}

func TestPublishRendersSummary(t *testing.T) {
	stubModule(t)

	out, err := run(t, publishArgs()...)
	if err != nil {
		t.Fatalf("publish error = %v\n%s", err, out)
	}
	for _, want := range []string{"Campaign rooftop", "meadow", "https://orchard.test/blog/", "archive"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestPublishJSONOutput(t *testing.T) {
	stubModule(t)

	out, err := run(t, publishArgs("--json")...)
	if err != nil {
		t.Fatalf("publish error = %v\n%s", err, out)
	}
	var result autopublish.BatchResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if result.Succeeded != 2 || result.Failed != 1 {
		t.Fatalf("expected 2 successes and 1 failure, got %d/%d", result.Succeeded, result.Failed)
	}
	if result.Failures[0].SiteID != "archive" || result.Failures[0].Retryable {
		t.Fatalf("unexpected failure %+v", result.Failures[0])
	}

	out, err = run(t, "slug-check", result.Results[0].Slug)
	if err != nil {
		t.Fatalf("slug-check error = %v", err)
	}
	if !strings.Contains(out, "taken") {
		t.Fatalf("expected published slug to be taken:\n%s", out)
	}
}

func TestRetryReportsRemainingFailures(t *testing.T) {
	stubModule(t)

	if _, err := run(t, publishArgs()...); err != nil {
		t.Fatalf("publish error = %v", err)
	}
	out, err := run(t, "retry", "--campaign", "rooftop", "--json")
	if err != nil {
		t.Fatalf("retry error = %v\n%s", err, out)
	}
	var result autopublish.BatchResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if result.TotalSites != 1 || result.Failed != 1 || result.Failures[0].SiteID != "archive" {
		t.Fatalf("expected the blog-disabled site to fail again, got %+v", result)
	}
}

func TestPreviewListsAssignments(t *testing.T) {
	stubModule(t)

	out, err := run(t, "preview", "--sites", "meadow,orchard", "--pool", "3,4")
	if err != nil {
		t.Fatalf("preview error = %v", err)
	}
	if !strings.Contains(out, "meadow  template 3") || !strings.Contains(out, "orchard  template 4") {
		t.Fatalf("unexpected preview output:\n%s", out)
	}
}

func TestSlugCheckAvailable(t *testing.T) {
	stubModule(t)

	out, err := run(t, "slug-check", "Fresh Solar Ideas")
	if err != nil {
		t.Fatalf("slug-check error = %v", err)
	}
	if !strings.Contains(out, "available") || !strings.Contains(out, "fresh-solar-ideas") {
		t.Fatalf("unexpected slug-check output:\n%s", out)
	}
}

func TestTemplatesListsCatalog(t *testing.T) {
	stubModule(t)

	out, err := run(t, "templates")
	if err != nil {
		t.Fatalf("templates error = %v", err)
	}
	if strings.Count(out, "\n") < 6 {
		t.Fatalf("expected the full catalog, got:\n%s", out)
	}
}

func TestPublishRequiresFlags(t *testing.T) {
	stubModule(t)

	if _, err := run(t, "publish", "--campaign", "rooftop"); err == nil {
		t.Fatal("expected missing flag error")
	}
}

func TestMigrateRequiresDatabase(t *testing.T) {
	if _, err := run(t, "migrate"); err == nil {
		t.Fatal("expected migrate to require a dsn")
	}

	dsn := "file:" + filepath.Join(t.TempDir(), "autopublish.db")
	out, err := run(t, "migrate", "--dsn", dsn)
	if err != nil {
		t.Fatalf("migrate error = %v", err)
	}
	if strings.Count(out, "applied") != 4 {
		t.Fatalf("expected four applied migrations:\n%s", out)
	}

	out, err = run(t, "migrate", "--dsn", dsn)
	if err != nil || !strings.Contains(out, "up to date") {
		t.Fatalf("expected no-op second run, got %v:\n%s", err, out)
	}
}

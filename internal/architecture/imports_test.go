package architecture_test

import (
	"bufio"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// Test files are exempt: fixtures assemble the whole stack.
func TestImportBoundaries(t *testing.T) {
	root, modulePath := moduleInfo(t)

	type violation struct {
		file string
		imp  string
		rule string
	}
	var violations []violation

	walkInternal(t, root, func(rel string, imports []string) {
		disallowed := disallowedImports(modulePath, layerFor(rel))
		for _, imp := range imports {
			for _, bad := range disallowed {
				if strings.HasPrefix(imp, bad) {
					violations = append(violations, violation{file: rel, imp: imp, rule: bad})
					break
				}
			}
		}
	})

	if len(violations) > 0 {
		var b strings.Builder
		b.WriteString("import boundary violations:\n")
		for _, v := range violations {
			fmt.Fprintf(&b, "- %s imports %q (disallowed: %q)\n", v.file, v.imp, v.rule)
		}
		t.Fatal(b.String())
	}
}

func TestOnlyAppImportsHTTPTransport(t *testing.T) {
	root, modulePath := moduleInfo(t)
	transport := modulePath + "/internal/http"

	var offenders []string
	walkInternal(t, root, func(rel string, imports []string) {
		if strings.HasPrefix(rel, "internal/http/") || strings.HasPrefix(rel, "internal/app/") {
			return
		}
		for _, imp := range imports {
			if imp == transport || strings.HasPrefix(imp, transport+"/") {
				offenders = append(offenders, fmt.Sprintf("- %s imports %q", rel, imp))
				return
			}
		}
	})
	if len(offenders) > 0 {
		t.Fatalf("internal/http imported outside the transport and app wiring:\n%s", strings.Join(offenders, "\n"))
	}
}

func TestLayerFor(t *testing.T) {
	cases := map[string]string{
		"internal/domain/exchange/exchange.go":     "domain",
		"internal/data/repos/exchange/exchange.go": "data",
		"internal/services/exchange.go":            "services",
		"internal/http/router.go":                  "http",
		"internal/platform/logger/logger.go":       "platform",
		"internal/observability/metrics.go":        "observability",
		"internal/app/app.go":                      "",
		"internal/architecture/imports_test.go":    "",
	}
	for rel, want := range cases {
		if got := layerFor(rel); got != want {
			t.Errorf("layerFor(%q) = %q, want %q", rel, got, want)
		}
	}
}

func moduleInfo(t *testing.T) (string, string) {
	t.Helper()
	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	root, err := findModuleRoot(start)
	if err != nil {
		t.Fatalf("find module root: %v", err)
	}
	modulePath, err := readModulePath(filepath.Join(root, "go.mod"))
	if err != nil {
		t.Fatalf("read module path: %v", err)
	}
	return root, modulePath
}

// walkInternal calls fn with the module-relative path and import list of
// every non-test Go file under internal/.
func walkInternal(t *testing.T, root string, fn func(rel string, imports []string)) {
	t.Helper()
	fset := token.NewFileSet()
	walkErr := filepath.WalkDir(filepath.Join(root, "internal"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			switch d.Name() {
			case ".git", "vendor", "node_modules", ".gocache", "testdata":
				return filepath.SkipDir
			default:
				return nil
			}
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		imports := make([]string, 0, len(f.Imports))
		for _, spec := range f.Imports {
			if spec == nil || spec.Path == nil {
				continue
			}
			imp, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				continue
			}
			imports = append(imports, imp)
		}
		fn(filepath.ToSlash(rel), imports)
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk internal/: %v", walkErr)
	}
}

func layerFor(rel string) string {
	switch {
	case strings.HasPrefix(rel, "internal/domain/"):
		return "domain"
	case strings.HasPrefix(rel, "internal/data/"):
		return "data"
	case strings.HasPrefix(rel, "internal/services/"):
		return "services"
	case strings.HasPrefix(rel, "internal/http/"):
		return "http"
	case strings.HasPrefix(rel, "internal/platform/"):
		return "platform"
	case strings.HasPrefix(rel, "internal/observability/"):
		return "observability"
	default:
		return ""
	}
}

func disallowedImports(modulePath string, layer string) []string {
	internal := modulePath + "/internal/"
	switch layer {
	case "domain":
		return []string{
			internal + "data/",
			internal + "services",
			internal + "http",
			internal + "app",
			internal + "observability",
		}
	case "data":
		return []string{
			internal + "services",
			internal + "http",
			internal + "app",
		}
	case "services":
		return []string{
			internal + "http",
			internal + "app",
		}
	case "http":
		return []string{
			internal + "data/",
			internal + "app",
		}
	case "platform", "observability":
		return []string{
			internal + "domain",
			internal + "data/",
			internal + "services",
			internal + "http",
			internal + "app",
		}
	default:
		return nil
	}
}

func findModuleRoot(start string) (string, error) {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found from %s", start)
		}
		dir = parent
	}
}

func readModulePath(goModPath string) (string, error) {
	f, err := os.Open(goModPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if !strings.HasPrefix(line, "module ") {
			continue
		}
		mp := strings.TrimSpace(strings.TrimPrefix(line, "module "))
		if mp == "" {
			return "", fmt.Errorf("empty module path in %s", goModPath)
		}
		return mp, nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("module path not found in %s", goModPath)
}

//go:build stress

package stress

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/oxhq/rulefx/core"
	"github.com/oxhq/rulefx/providers"
	"github.com/oxhq/rulefx/providers/ruby"
	"github.com/oxhq/rulefx/rules"
)

const model = `class Order
  def customer_name
    customer.name
  end

  def total
    return nil unless discount != nil
    amount if amount != nil
  end
end
`

const corrected = `class Order
  delegate :name, to: :customer, prefix: true

  def total
    return nil unless !discount.nil?
    amount if !amount.nil?
  end
end
`

func TestStressAutocorrect(t *testing.T) {
	dir := t.TempDir()
	const files = 200
	for i := 0; i < files; i++ {
		path := filepath.Join(dir, fmt.Sprintf("m%02d", i%10), fmt.Sprintf("order_%03d.rb", i))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(model), 0o644); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}

	registry := providers.NewRegistry()
	registry.Register(ruby.New())
	processor := core.NewProcessor(registry, rules.Registry(), core.WithWorkers(16))

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		result, err := processor.Check(ctx, core.FileScope{Path: dir}, core.Mode{Autocorrect: true})
		if err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		if result.FilesScanned != files {
			t.Fatalf("iteration %d: scanned %d files, want %d", i, result.FilesScanned, files)
		}
		want := 0
		if i == 0 {
			want = files
		}
		if result.FilesChanged != want {
			t.Fatalf("iteration %d: changed %d files, want %d", i, result.FilesChanged, want)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "m00", "order_000.rb"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(data) != corrected {
		t.Fatalf("unexpected correction:\n%s", data)
	}

	stats := processor.Stats()["ruby"]
	if stats.Active != 0 {
		t.Fatalf("expected parser pool to drain, active=%d", stats.Active)
	}
}

package ruby

import (
	"github.com/oxhq/rulefx/providers/base"
	"github.com/oxhq/rulefx/providers/catalog"
)

func init() {
	catalog.Register(catalog.LanguageInfo{
		ID:         "ruby",
		Extensions: (&Config{}).Extensions(),
	})
}

// New creates a Ruby provider using base functionality with Ruby-specific
// node mapping
func New() *base.Provider {
	return base.New(&Config{})
}

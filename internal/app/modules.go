package app

import (
	"github.com/avikov/forgerig/internal/action"
	"github.com/avikov/forgerig/modules/archive"
	"github.com/avikov/forgerig/modules/checksum"
	"github.com/avikov/forgerig/modules/compile"
	"github.com/avikov/forgerig/modules/install"
	"github.com/avikov/forgerig/modules/patch"
	"github.com/avikov/forgerig/modules/print"
	"github.com/avikov/forgerig/modules/translate"
	"github.com/avikov/forgerig/modules/upload"
	"github.com/avikov/forgerig/modules/writefile"
)

// coreModules is the default set of action modules registered when the
// caller supplies none.
var coreModules = []action.Module{
	&compile.Module{},
	&install.Module{},
	&writefile.Module{},
	&translate.Module{},
	&archive.Module{},
	&checksum.Module{},
	&upload.Module{},
	&patch.Module{},
	&print.Module{},
}

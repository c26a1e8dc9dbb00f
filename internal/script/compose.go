// SPDX-License-Identifier: MPL-2.0

// Package script assembles a fragment's pieces into one self-contained
// Python program.
package script

import (
	"fmt"
	"strings"

	"pysling/pkg/fragment"
)

// programTemplate lays out the composed program. Section order is
// load-bearing: declarations may reference imported names, initialization
// may reference declared names, and the result expression may reference
// both. The serialized outcome must be the program's last line on stdout.
const programTemplate = `
import json
import traceback

%s

%s

%s

%s

try:
  result = %s
except Exception as e:
  tb = traceback.format_exc()
  result = dict(failed=True, msg=str(e), traceback=tb)

print(json.dumps(result))
`

// Compose produces the full program text for frag. payloadPaths are the
// already-copied payload archive paths, expressed in the target process's
// namespace; each is inserted at the front of the module search path in the
// order given. The text is recomputed on every call.
func Compose(frag fragment.Parser, checkMode bool, payloadPaths []string) string {
	return fmt.Sprintf(programTemplate,
		searchPathBootstrap(payloadPaths),
		frag.Imports(),
		frag.Declarations(),
		frag.Initialize(),
		frag.ResultExpression(checkMode))
}

// searchPathBootstrap emits the statements that make the payload archives
// importable in the subprocess.
func searchPathBootstrap(payloadPaths []string) string {
	var b strings.Builder
	b.WriteString("import sys\n")
	for _, p := range payloadPaths {
		fmt.Fprintf(&b, "sys.path.insert(0, '''%s''')\n", p)
	}
	return b.String()
}

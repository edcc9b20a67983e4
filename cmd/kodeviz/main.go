// Command kodeviz renders diagnostic figures for kernel operator transport
// runs: heat map triptychs, pairwise marginal matrices, particle
// trajectories and loss curves.
package main

import (
	"fmt"
	"os"

	"github.com/kode-ml/kode/internal/fsutil"
)

func main() {
	a := &app{fs: fsutil.OSFileSystem{}, stdout: os.Stdout, stderr: os.Stderr}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "kodeviz: %v\n", err)
		os.Exit(1)
	}
}

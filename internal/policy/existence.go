package policy

import (
	"github.com/branchfs/branchfs/internal/branch"
	"github.com/branchfs/branchfs/internal/pathutil"
)

func existsOn(b *branch.Branch, virtualPath string) bool {
	return pathutil.ExistsOn(b.BasePath(), virtualPath)
}

func parentOf(virtualPath string) string {
	return pathutil.Parent(virtualPath)
}

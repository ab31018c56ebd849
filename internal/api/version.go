package api

import (
	"context"

	"github.com/restcue/restcue/common"
)

// getVersion returns the daemon's version information, as set when the
// daemon was started.
func (s *Api) getVersion(context.Context, common.ActionParams) (common.VersionResponse, error) {
	return common.VersionResponse{
		Version:   s.version.Version,
		Commit:    s.version.Commit,
		BuildType: s.version.BuildType,
	}, nil
}

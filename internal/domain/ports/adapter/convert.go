package adapter

import "context"

// AudioConverter normalizes a fetched media file to a provider's TargetSpec.
// The output is written as a new file under the job's working directory; the
// input is never mutated in place.
type AudioConverter interface {
	Convert(ctx context.Context, inputPath string, spec TargetSpec) (string, error)
}

package workload

import (
	"bytes"
	"context"

	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/inference-sim/flowsim/sim"
)

// LoadFlows downloads a description from location and parses it.
// location is a local path or any URL the afs service supports
// (file://, mem://, s3://, gs://). A nil fs uses afs.New().
func LoadFlows(ctx context.Context, fs afs.Service, location string, cfg ParseConfig) ([]sim.Flow, error) {
	if fs == nil {
		fs = afs.New()
	}
	source := url.Normalize(location, file.Scheme)
	data, err := fs.DownloadWithURL(ctx, source)
	if err != nil {
		return nil, &ParseError{Source: location, Field: "source", Err: err}
	}
	logrus.Debugf("read %d bytes from %s", len(data), source)
	return ParseFlows(bytes.NewReader(data), location, cfg)
}

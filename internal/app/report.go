package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/sprucekit/spruce/internal/classify"
	"github.com/sprucekit/spruce/internal/graph"
	"github.com/sprucekit/spruce/internal/jamf"
	"github.com/sprucekit/spruce/internal/removal"
	"github.com/sprucekit/spruce/internal/report"
)

// runReport drives the reporting path: fetch, build the usage graph,
// classify, aggregate, and either print or serialize. With --clean it
// then feeds the report's own candidates straight into the removal
// executor.
func runReport(ctx context.Context) error {
	sess, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	requested := requestedTypes()
	snap, err := sess.fetcher.Snapshot(ctx, requested)
	if err != nil {
		return err
	}

	idx := graph.Build(snap)
	for _, diag := range idx.Diagnostics() {
		sess.log.Warn("skipped malformed reference data",
			zap.String("container", diag.Container.Type.String()),
			zap.Int("id", diag.Container.ID),
			zap.String("problem", diag.Problem))
	}

	opts := classify.Options{
		VersionsToKeep: sess.prefs.VersionsToKeep,
		StaleAfter:     time.Duration(sess.prefs.StaleDays) * 24 * time.Hour,
		Now:            time.Now(),
	}
	header := report.Header{
		Date:          time.Now(),
		Server:        sess.prefs.URL,
		APIUser:       sess.prefs.Username,
		LocalUser:     localUser(),
		ToolVersion:   Version,
		ClientVersion: jamf.ClientLibraryVersion,
	}
	rpt := report.Aggregate(header, snap, idx, requested, opts)

	if flagOutFile != "" {
		file, err := os.Create(flagOutFile)
		if err != nil {
			return fmt.Errorf("creating %s: %w", flagOutFile, err)
		}
		defer file.Close()
		if err := report.WriteInterchange(file, rpt); err != nil {
			return fmt.Errorf("writing %s: %w", flagOutFile, err)
		}
		fmt.Printf("Report written to %s\n", flagOutFile)
		return nil
	}

	if err := report.WriteText(os.Stdout, rpt, flagVerbose); err != nil {
		return err
	}
	if flagClean {
		return cleanFromReport(ctx, sess, rpt)
	}
	return nil
}

// cleanFromReport is the one-shot report-and-remove mode: the report's
// removal candidates become the request, each type is confirmed as
// usual, and the run still exits zero on partial per-item failure.
func cleanFromReport(ctx context.Context, sess *session, rpt *report.Report) error {
	var request removal.Request
	for _, candidate := range rpt.RemovalCandidates() {
		request.Items = append(request.Items, removal.Item{
			Type: candidate.Type,
			ID:   candidate.ID,
			Name: candidate.Name,
		})
	}
	if request.Empty() {
		fmt.Println("Nothing to clean.")
		return nil
	}
	return confirmAndExecute(ctx, sess, request)
}

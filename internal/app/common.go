package app

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sprucekit/spruce/internal/config"
	"github.com/sprucekit/spruce/internal/inventory"
	"github.com/sprucekit/spruce/internal/jamf"
	"github.com/sprucekit/spruce/internal/logging"
)

// session bundles the collaborators every mode needs: resolved
// preferences, a verified server connection, and the fetcher.
type session struct {
	prefs   *config.Preferences
	client  *jamf.Client
	fetcher *inventory.Fetcher
	log     *zap.Logger
}

// newSession loads preferences, builds the client, and verifies
// connectivity. Auth or connectivity failure here is fatal for the
// whole invocation.
func newSession(ctx context.Context) (*session, error) {
	log, err := logging.New(flagLogLevel)
	if err != nil {
		return nil, err
	}

	prefs, err := config.Load(flagPrefs)
	if err != nil {
		return nil, err
	}

	client, err := jamf.NewClient(jamf.Config{
		URL:       prefs.URL,
		Username:  prefs.Username,
		Password:  prefs.Password,
		VerifySSL: prefs.VerifySSL,
		Timeout:   60 * time.Second,
	}, log)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx); err != nil {
		return nil, err
	}

	return &session{
		prefs:   prefs,
		client:  client,
		fetcher: inventory.NewFetcher(client, log, prefs.FetchWorkers),
		log:     log,
	}, nil
}

func (s *session) close() {
	s.log.Sync() //nolint:errcheck // stderr sync failure is harmless
}

// terminalPrompter asks on stdout and reads stdin. Only an explicit
// "y"/"yes" confirms; everything else declines. --yes short-circuits
// every question.
type terminalPrompter struct {
	reader *bufio.Reader
}

func newTerminalPrompter() *terminalPrompter {
	return &terminalPrompter{reader: bufio.NewReader(os.Stdin)}
}

func (p *terminalPrompter) Confirm(question string) (bool, error) {
	if flagYes {
		fmt.Printf("%s (y/N) y\n", question)
		return true, nil
	}
	fmt.Printf("%s (y/N) ", question)
	answer, err := p.reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

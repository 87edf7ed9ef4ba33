package jamf

import (
	"context"
	"crypto/tls"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sprucekit/spruce/internal/inventory"
)

// ClientLibraryVersion is reported in the interchange document header.
const ClientLibraryVersion = "1.1.0"

const apiBase = "/JSSResource"

// endpoint describes how one object type maps onto the Classic API.
type endpoint struct {
	path     string
	entryTag string
}

var endpoints = map[inventory.ObjectType]endpoint{
	inventory.TypeComputer:                         {"computers", "computer"},
	inventory.TypeComputerGroup:                    {"computergroups", "computer_group"},
	inventory.TypePackage:                          {"packages", "package"},
	inventory.TypeScript:                           {"scripts", "script"},
	inventory.TypePolicy:                           {"policies", "policy"},
	inventory.TypeComputerConfigurationProfile:     {"osxconfigurationprofiles", "os_x_configuration_profile"},
	inventory.TypeMobileDevice:                     {"mobiledevices", "mobile_device"},
	inventory.TypeMobileDeviceGroup:                {"mobiledevicegroups", "mobile_device_group"},
	inventory.TypeMobileDeviceConfigurationProfile: {"mobiledeviceconfigurationprofiles", "configuration_profile"},
	inventory.TypeMobileApplication:                {"mobiledeviceapplications", "mobile_device_application"},
}

// Config carries the connection settings loaded from preferences.
type Config struct {
	URL       string
	Username  string
	Password  string
	VerifySSL bool
	Timeout   time.Duration
}

// Client talks to the Jamf Classic API. It implements
// inventory.Client.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	log      *zap.Logger
}

// NewClient validates the config and builds a client. It does not
// touch the network; call Ping to verify connectivity.
func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("jamf: server URL is required")
	}
	parsed, err := url.Parse(cfg.URL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("jamf: invalid server URL %q", cfg.URL)
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("jamf: API username and password are required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.VerifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // operator opt-out, mirrors server self-signed deployments
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.URL, "/") + apiBase,
		username: cfg.Username,
		password: cfg.Password,
		http:     &http.Client{Timeout: timeout, Transport: transport},
		log:      log,
	}, nil
}

// Ping verifies that the server is reachable and the credentials are
// accepted. Any failure here is fatal for the whole run.
func (c *Client) Ping(ctx context.Context) error {
	body, err := c.get(ctx, c.baseURL+"/categories")
	if err != nil {
		return &inventory.FatalError{Err: err}
	}
	body.Close()
	return nil
}

// List fetches the id/name summaries for one object type.
func (c *Client) List(ctx context.Context, t inventory.ObjectType) ([]inventory.ManagedObject, error) {
	ep, ok := endpoints[t]
	if !ok {
		return nil, fmt.Errorf("jamf: no endpoint for type %s", t)
	}
	body, err := c.get(ctx, c.baseURL+"/"+ep.path)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	entries, err := decodeList(body, ep.entryTag)
	if err != nil {
		return nil, fmt.Errorf("jamf: decoding %s list: %w", ep.path, err)
	}
	objects := make([]inventory.ManagedObject, len(entries))
	for i, e := range entries {
		objects[i] = inventory.ManagedObject{Type: t, ID: e.ID, Name: e.Name}
	}
	return objects, nil
}

// Get fetches one object's detail payload.
func (c *Client) Get(ctx context.Context, t inventory.ObjectType, id int) (inventory.ManagedObject, error) {
	ep, ok := endpoints[t]
	if !ok {
		return inventory.ManagedObject{}, fmt.Errorf("jamf: no endpoint for type %s", t)
	}
	body, err := c.get(ctx, fmt.Sprintf("%s/%s/id/%d", c.baseURL, ep.path, id))
	if err != nil {
		return inventory.ManagedObject{}, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return inventory.ManagedObject{}, &inventory.TransientError{Err: err}
	}
	obj, err := decodeDetail(t, data)
	if err != nil {
		return inventory.ManagedObject{}, fmt.Errorf("jamf: decoding %s id %d: %w", ep.path, id, err)
	}
	return obj, nil
}

// Delete removes one object by identity.
func (c *Client) Delete(ctx context.Context, t inventory.ObjectType, id int) error {
	ep, ok := endpoints[t]
	if !ok {
		return fmt.Errorf("jamf: no endpoint for type %s", t)
	}
	target := fmt.Sprintf("%s/%s/id/%d", c.baseURL, ep.path, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, target, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.username, c.password)
	resp, err := c.http.Do(req)
	if err != nil {
		return classifyNetError(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
	return classifyStatus(resp.StatusCode)
}

// get issues an authenticated GET and returns the body on 200.
func (c *Client) get(ctx context.Context, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "text/xml")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyNetError(err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, classifyStatus(resp.StatusCode)
	}
	return resp.Body, nil
}

// classifyStatus maps an HTTP status to the core error taxonomy.
func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return inventory.ErrNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("authentication rejected (HTTP %d): %w", status, errAuth)
	case status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented:
		return inventory.ErrUnsupported
	case status == http.StatusConflict:
		// Jamf answers 409 when a delete class is disabled for the
		// deployment variant.
		return inventory.ErrUnsupported
	case status >= 500 || status == http.StatusTooManyRequests:
		return &inventory.TransientError{Err: fmt.Errorf("server returned HTTP %d", status)}
	default:
		return fmt.Errorf("server returned HTTP %d", status)
	}
}

var errAuth = errors.New("authentication failed")

// classifyNetError separates retryable transport hiccups from hard
// failures.
func classifyNetError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &inventory.TransientError{Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	// Connection refused/reset and friends are worth one more try.
	return &inventory.TransientError{Err: err}
}

// decodeList walks a listing document and collects every <entryTag>
// element's id and name, ignoring the varying wrapper element.
func decodeList(r io.Reader, entryTag string) ([]listEntry, error) {
	decoder := xml.NewDecoder(r)
	var entries []listEntry
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != entryTag {
			continue
		}
		var entry listEntry
		if err := decoder.DecodeElement(&entry, &start); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
}

// decodeDetail maps one raw detail document to the normalized object
// model.
func decodeDetail(t inventory.ObjectType, data []byte) (inventory.ManagedObject, error) {
	obj := inventory.ManagedObject{Type: t}
	switch t {
	case inventory.TypePolicy:
		var d policyDetail
		if err := xml.Unmarshal(data, &d); err != nil {
			return obj, err
		}
		obj.ID, obj.Name = d.General.ID, d.General.Name
		obj.Detail = &inventory.Detail{
			Enabled:    d.General.Enabled,
			PackageIDs: refIDs(d.PackageConfiguration.Packages),
			ScriptIDs:  refIDs(d.Scripts),
			Scope:      computerScopeToModel(d.Scope),
		}
	case inventory.TypeComputerConfigurationProfile:
		var d osxProfileDetail
		if err := xml.Unmarshal(data, &d); err != nil {
			return obj, err
		}
		obj.ID, obj.Name = d.General.ID, d.General.Name
		obj.Detail = &inventory.Detail{Scope: computerScopeToModel(d.Scope)}
	case inventory.TypeMobileDeviceConfigurationProfile:
		var d mobileProfileDetail
		if err := xml.Unmarshal(data, &d); err != nil {
			return obj, err
		}
		obj.ID, obj.Name = d.General.ID, d.General.Name
		obj.Detail = &inventory.Detail{Scope: mobileScopeToModel(d.Scope)}
	case inventory.TypeMobileApplication:
		var d mobileAppDetail
		if err := xml.Unmarshal(data, &d); err != nil {
			return obj, err
		}
		obj.ID, obj.Name = d.General.ID, d.General.Name
		obj.Detail = &inventory.Detail{
			Version: d.General.Version,
			Scope:   mobileScopeToModel(d.Scope),
		}
	case inventory.TypeComputerGroup:
		var d computerGroupDetail
		if err := xml.Unmarshal(data, &d); err != nil {
			return obj, err
		}
		obj.ID, obj.Name = d.ID, d.Name
		obj.Detail = &inventory.Detail{
			Smart:            d.Smart,
			MemberCount:      len(d.Computers),
			NestedGroupNames: nestedGroupNames(d.Criteria, "Computer Group"),
		}
	case inventory.TypeMobileDeviceGroup:
		var d mobileGroupDetail
		if err := xml.Unmarshal(data, &d); err != nil {
			return obj, err
		}
		obj.ID, obj.Name = d.ID, d.Name
		obj.Detail = &inventory.Detail{
			Smart:            d.Smart,
			MemberCount:      len(d.MobileDevices),
			NestedGroupNames: nestedGroupNames(d.Criteria, "Mobile Device Group"),
		}
	case inventory.TypeComputer:
		var d computerDetail
		if err := xml.Unmarshal(data, &d); err != nil {
			return obj, err
		}
		obj.ID, obj.Name = d.General.ID, d.General.Name
		obj.Detail = &inventory.Detail{
			LastCheckIn: parseJamfTime(d.General.LastContactUTC, d.General.LastContactTime),
			OSVersion:   d.Hardware.OSVersion,
		}
	case inventory.TypeMobileDevice:
		var d mobileDeviceDetail
		if err := xml.Unmarshal(data, &d); err != nil {
			return obj, err
		}
		obj.ID, obj.Name = d.General.ID, d.General.Name
		detail := &inventory.Detail{OSVersion: d.General.OSVersion}
		if d.General.LastInventoryEpoch > 0 {
			checkin := time.UnixMilli(d.General.LastInventoryEpoch).UTC()
			detail.LastCheckIn = &checkin
		} else {
			detail.LastCheckIn = parseJamfTime(d.General.LastInventoryUTC, "")
		}
		obj.Detail = detail
	case inventory.TypePackage:
		var d packageDetail
		if err := xml.Unmarshal(data, &d); err != nil {
			return obj, err
		}
		obj.ID, obj.Name = d.ID, d.Name
		obj.Detail = &inventory.Detail{}
	case inventory.TypeScript:
		var d scriptDetail
		if err := xml.Unmarshal(data, &d); err != nil {
			return obj, err
		}
		obj.ID, obj.Name = d.ID, d.Name
		obj.Detail = &inventory.Detail{}
	default:
		return obj, fmt.Errorf("unhandled object type %s", t)
	}
	return obj, nil
}

func refIDs(refs []idRef) []int {
	if len(refs) == 0 {
		return nil
	}
	ids := make([]int, len(refs))
	for i, r := range refs {
		ids[i] = r.ID
	}
	return ids
}

func computerScopeToModel(s computerScope) *inventory.Scope {
	return &inventory.Scope{
		AllTargets:        s.AllComputers,
		GroupIDs:          refIDs(s.ComputerGroups),
		TargetIDs:         refIDs(s.Computers),
		ExclusionGroupIDs: refIDs(s.Exclusions.ComputerGroups),
	}
}

func mobileScopeToModel(s mobileScope) *inventory.Scope {
	return &inventory.Scope{
		AllTargets:        s.AllMobileDevices,
		GroupIDs:          refIDs(s.MobileDeviceGroups),
		TargetIDs:         refIDs(s.MobileDevices),
		ExclusionGroupIDs: refIDs(s.Exclusions.MobileDeviceGroups),
	}
}

// nestedGroupNames extracts smart-group criteria that reference other
// groups. Criteria reference groups by display name, not id; the graph
// builder resolves names against the snapshot.
func nestedGroupNames(criteria []groupCriterion, criterionName string) []string {
	var names []string
	for _, c := range criteria {
		if c.Name == criterionName && c.Value != "" {
			names = append(names, c.Value)
		}
	}
	return names
}

// parseJamfTime handles the few timestamp layouts the Classic API
// emits. Returns nil when no usable timestamp is present, which the
// staleness classifier treats as maximally stale.
func parseJamfTime(utc, local string) *time.Time {
	layouts := []string{
		"2006-01-02T15:04:05.000-0700",
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, raw := range []string{utc, local} {
		if raw == "" {
			continue
		}
		for _, layout := range layouts {
			if ts, err := time.Parse(layout, raw); err == nil {
				converted := ts.UTC()
				return &converted
			}
		}
		// Some deployments hand back bare epoch millis here.
		if millis, err := strconv.ParseInt(raw, 10, 64); err == nil && millis > 0 {
			converted := time.UnixMilli(millis).UTC()
			return &converted
		}
	}
	return nil
}

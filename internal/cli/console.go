package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/polaris/internal/app"
	"github.com/dmitrijs2005/polaris/internal/common"
	"github.com/dmitrijs2005/polaris/internal/filex"
	"github.com/dmitrijs2005/polaris/internal/keys"
	"github.com/dmitrijs2005/polaris/internal/models"
	"github.com/dmitrijs2005/polaris/internal/tracking/location"
)

const defaultFixAccuracy = 10.0

var (
	ErrUsage              = errors.New("usage")
	ErrPassphraseMismatch = errors.New("passphrases do not match")
)

// Console is the REPL front end of a vault.
type Console struct {
	app *app.App
	in  io.Reader
	out io.Writer
}

func NewConsole(a *app.App, in io.Reader, out io.Writer) *Console {
	return &Console{app: a, in: in, out: out}
}

// Run starts the periodic sync loop and the REPL, and returns once the user
// exits or ctx is cancelled.
func (c *Console) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := c.app.RunSync(ctx); err != nil {
			c.app.Logger().Error(ctx, "sync loop stopped", "error", err)
		}
	}()

	printlnFn("Welcome to Polaris vault (type 'help' for commands)")
	runREPL(ctx, c, c.status, bufio.NewScanner(c.in))

	cancel()
	wg.Wait()
}

func (c *Console) status() string {
	loc := c.app.Location().State().String()
	br := "off"
	if c.app.Browsing().ConsentID() != "" {
		br = "on"
	}
	return fmt.Sprintf("(location:%s browsing:%s)", loc, br)
}

func usage(format string) error {
	return fmt.Errorf("%w: %s", ErrUsage, format)
}

func parseConsentType(s string) (models.ConsentType, error) {
	t := models.ConsentType(strings.ToLower(s))
	if !t.Valid() {
		return "", fmt.Errorf("unknown consent type %q", s)
	}
	return t, nil
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func (c *Console) consent(t models.ConsentType) (models.Consent, error) {
	consent, ok := c.app.Consents().GetByType(t)
	if !ok {
		return models.Consent{}, fmt.Errorf("no consent for %s", t)
	}
	return consent, nil
}

func (c *Console) Consents(_ context.Context, _ []string) error {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tENABLED\tGRANULARITY\tRETENTION\tBACKGROUND\tUPDATED")
	for _, t := range models.KnownConsentTypes {
		consent, ok := c.app.Consents().GetByType(t)
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%t\t%s\t%s\t%t\t%s\n",
			consent.Type, consent.Enabled, consent.Granularity, consent.RetentionLabel(),
			consent.AllowBackground, consent.UpdatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func (c *Console) Toggle(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("toggle <type>")
	}
	t, err := parseConsentType(args[0])
	if err != nil {
		return err
	}
	consent, err := c.consent(t)
	if err != nil {
		return err
	}

	updated, err := c.app.Consents().Toggle(ctx, consent.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s collection enabled: %t\n", updated.Type, updated.Enabled)
	return nil
}

func (c *Console) Set(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return usage("set <type> <granularity|retention|background|enabled> <value>")
	}
	t, err := parseConsentType(args[0])
	if err != nil {
		return err
	}
	consent, err := c.consent(t)
	if err != nil {
		return err
	}

	var patch models.ConsentPatch
	value := args[2]
	switch strings.ToLower(args[1]) {
	case "granularity":
		g := models.Granularity(strings.ToLower(value))
		patch.Granularity = &g
	case "retention":
		days := models.RetentionIndefinite
		if !strings.EqualFold(value, "indefinite") {
			if days, err = strconv.Atoi(value); err != nil {
				return fmt.Errorf("retention: %w", err)
			}
		}
		patch.DataRetention = &days
	case "background":
		b, err := parseSwitch(value)
		if err != nil {
			return err
		}
		patch.AllowBackground = &b
	case "enabled":
		b, err := parseSwitch(value)
		if err != nil {
			return err
		}
		patch.Enabled = &b
	default:
		return fmt.Errorf("unknown field %q", args[1])
	}

	updated, err := c.app.Consents().Update(ctx, consent.ID, patch)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s updated (granularity %s, retention %s, background %t, enabled %t)\n",
		updated.Type, updated.Granularity, updated.RetentionLabel(), updated.AllowBackground, updated.Enabled)
	return nil
}

func (c *Console) Reset(ctx context.Context, _ []string) error {
	if err := c.app.Consents().Reset(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "consents restored to defaults")
	return nil
}

func (c *Console) Perm(ctx context.Context, args []string) error {
	perms := c.app.Permissions()
	fg, err := perms.ForegroundGranted(ctx)
	if err != nil {
		return err
	}
	bg, err := perms.BackgroundGranted(ctx)
	if err != nil {
		return err
	}

	switch len(args) {
	case 0:
		fmt.Fprintf(c.out, "foreground: %t\nbackground: %t\n", fg, bg)
		return nil
	case 2:
	default:
		return usage("perm [fg|bg on|off]")
	}

	on, err := parseSwitch(args[1])
	if err != nil {
		return err
	}
	switch strings.ToLower(args[0]) {
	case "fg", "foreground":
		fg = on
	case "bg", "background":
		bg = on
	default:
		return usage("perm [fg|bg on|off]")
	}

	perms.Set(fg, bg)
	c.app.RefreshLocation(ctx)
	fmt.Fprintf(c.out, "foreground: %t\nbackground: %t\nlocation: %s\n", fg, bg, c.app.Location().State())
	return nil
}

func (c *Console) Fix(_ context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return usage("fix <lat> <lon> [accuracy]")
	}

	vals := []float64{0, 0, defaultFixAccuracy}
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("fix: %w", err)
		}
		vals[i] = v
	}
	if vals[0] < -90 || vals[0] > 90 || vals[1] < -180 || vals[1] > 180 {
		return fmt.Errorf("fix: coordinates out of range")
	}

	return c.app.Fixes().Push(location.Fix{
		Latitude:  vals[0],
		Longitude: vals[1],
		Accuracy:  vals[2],
		Timestamp: c.app.Clock().Now(),
	})
}

func (c *Console) Visit(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("visit <url> [title]")
	}
	return c.app.Browsing().TrackPageVisit(ctx, args[0], strings.Join(args[1:], " "))
}

func (c *Console) End(ctx context.Context, _ []string) error {
	return c.app.Browsing().EndSession(ctx)
}

func (c *Console) Record(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return usage("record <domain> <url> <seconds> [title]")
	}
	secs, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return c.app.Browsing().RecordActivity(ctx, args[0], args[1], strings.Join(args[3:], " "), secs)
}

func (c *Console) Status(_ context.Context, _ []string) error {
	loc := c.app.Location()
	fmt.Fprintf(c.out, "location: %s\n", loc.State())
	if err := loc.Err(); err != nil {
		fmt.Fprintf(c.out, "  last error: %v\n", err)
	}
	if f, ok := loc.LastFix(); ok {
		fmt.Fprintf(c.out, "  last fix: %.5f,%.5f ±%.0fm at %s\n",
			f.Latitude, f.Longitude, f.Accuracy, f.Timestamp.Format(time.RFC3339))
	}

	br := c.app.Browsing()
	if br.ConsentID() == "" {
		fmt.Fprintln(c.out, "browsing: off")
		return nil
	}
	fmt.Fprintln(c.out, "browsing: on")
	if s, ok := br.CurrentSession(); ok {
		elapsed := c.app.Clock().Now().Sub(s.StartedAt).Truncate(time.Second)
		fmt.Fprintf(c.out, "  open page: %s (%s) for %s\n", s.URL, s.Domain, elapsed)
	}
	return nil
}

func (c *Console) Stats(ctx context.Context, args []string) error {
	days := c.app.Config().StatsWindowDays
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return usage("stats [days]")
		}
		days = n
	}

	ls, err := c.app.Store().GetLocationStats(ctx, days)
	if err != nil {
		return err
	}
	bs, err := c.app.Store().GetBrowsingStats(ctx, days)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "last %d days\n", days)
	fmt.Fprintf(c.out, "  location points: %d", ls.Count)
	if !ls.LastTimestamp.IsZero() {
		fmt.Fprintf(c.out, " (latest %s)", ls.LastTimestamp.Format(time.RFC3339))
	}
	fmt.Fprintf(c.out, "\n  page visits: %d across %d domains\n", bs.Count, bs.Domains)
	return nil
}

func (c *Console) Unsynced(ctx context.Context, _ []string) error {
	locs, err := c.app.Store().GetUnsyncedLocationPoints(ctx)
	if err != nil {
		return err
	}
	visits, err := c.app.Store().GetUnsyncedBrowsingPoints(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "unsynced location points: %d\nunsynced page visits: %d\n", len(locs), len(visits))
	return nil
}

func (c *Console) Sync(ctx context.Context, _ []string) error {
	res, err := c.app.Sync().RunOnce(ctx)
	fmt.Fprintf(c.out, "synced %d location points and %d page visits\n", res.Locations, res.Browsing)
	return err
}

// exportDoc is the plaintext layout of an export file.
type exportDoc struct {
	ExportedAt time.Time              `json:"exportedAt"`
	User       *models.User           `json:"user,omitempty"`
	Consents   []models.Consent       `json:"consents"`
	Locations  []models.LocationPoint `json:"locations"`
	Browsing   []models.BrowsingPoint `json:"browsing"`
}

func (c *Console) Export(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("export <file>")
	}

	pass, err := GetPassword("Export passphrase", c.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pass)
	confirm, err := GetPassword("Repeat passphrase", c.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)
	if len(pass) == 0 || string(pass) != string(confirm) {
		return ErrPassphraseMismatch
	}

	store := c.app.Store()
	doc := exportDoc{ExportedAt: c.app.Clock().Now().UTC(), Consents: c.app.Consents().List()}
	if doc.User, err = store.GetUser(ctx); err != nil {
		return err
	}
	if doc.Locations, err = store.GetUnsyncedLocationPoints(ctx); err != nil {
		return err
	}
	if doc.Browsing, err = store.GetUnsyncedBrowsingPoints(ctx); err != nil {
		return err
	}

	plain, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	sealed, err := keys.EncryptWithPassphrase(plain, pass)
	if err != nil {
		return err
	}
	if err := filex.WriteFileAtomic(args[0], []byte(sealed), 0o600); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "exported %d consents, %d location points, %d page visits to %s\n",
		len(doc.Consents), len(doc.Locations), len(doc.Browsing), args[0])
	return nil
}

func (c *Console) Logout(ctx context.Context, _ []string) error {
	if err := c.app.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "all consents and collected data removed")
	return nil
}

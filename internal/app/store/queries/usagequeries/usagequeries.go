// Package usagequeries assembles the role-scoped dashboard views: each
// view fetches the entities a role may see, summarizes their usage and
// returns them in source order.
package usagequeries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/pharmausage/internal/app/system/apperr"
	"github.com/dalemusser/pharmausage/internal/app/system/htmlsanitize"
	"github.com/dalemusser/pharmausage/internal/app/system/metrics"
	"github.com/dalemusser/pharmausage/internal/app/system/usage"
	"github.com/dalemusser/pharmausage/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Display names used when a document has no usable name.
const (
	DefaultPharmacyName        = "Pharmacy"
	DefaultUnknownPharmacyName = "Unknown Pharmacy"
	DefaultMarketingName       = "Marketing Person"
)

// DefaultConcurrency bounds per-view fan-out when Config leaves it unset.
const DefaultConcurrency = 8

// Entry is one entity row on a dashboard.
type Entry struct {
	ID      primitive.ObjectID `json:"id"`
	Name    string             `json:"name"`
	Summary usage.Summary      `json:"summary"`
}

// PharmacyView backs the pharmacy home and pharmacy detail screens.
type PharmacyView struct {
	Today string `json:"today"`
	Entry
}

// MarketingView backs the marketing home and marketing detail screens.
type MarketingView struct {
	Today      string             `json:"today"`
	ID         primitive.ObjectID `json:"id"`
	Name       string             `json:"name,omitempty"`
	Pharmacies []Entry            `json:"pharmacies"`
	Combined   usage.Summary      `json:"combined"`
}

// MarketerRef names one marketing user on the company home.
type MarketerRef struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
}

// CompanyView backs the company home screen.
type CompanyView struct {
	Today      string        `json:"today"`
	GrandTotal int64         `json:"grand_total"`
	Marketers  []MarketerRef `json:"marketers"`
}

// Config tunes an Assembler.
type Config struct {
	Concurrency int
	Location    *time.Location
}

// Assembler builds views from a Directory. It holds no per-request state.
type Assembler struct {
	dir   Directory
	log   *zap.Logger
	limit int
	loc   *time.Location
	now   func() time.Time
}

// New creates an Assembler.
func New(dir Directory, cfg Config, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := cfg.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Assembler{dir: dir, log: logger, limit: limit, loc: loc, now: time.Now}
}

func (a *Assembler) today() string {
	return usage.Today(a.now(), a.loc)
}

// PharmacyHome summarizes the signed-in pharmacy's own usage.
func (a *Assembler) PharmacyHome(ctx context.Context, pharmacyID primitive.ObjectID) (view PharmacyView, err error) {
	defer a.observe("pharmacy_home", time.Now(), &err)
	return a.pharmacy(ctx, "pharmacy home", pharmacyID)
}

// PharmacyDetail summarizes one pharmacy opened from a marketing or company screen.
func (a *Assembler) PharmacyDetail(ctx context.Context, pharmacyID primitive.ObjectID) (view PharmacyView, err error) {
	defer a.observe("pharmacy_detail", time.Now(), &err)
	return a.pharmacy(ctx, "pharmacy detail", pharmacyID)
}

func (a *Assembler) pharmacy(ctx context.Context, op string, id primitive.ObjectID) (PharmacyView, error) {
	today := a.today()
	entry, err := a.pharmacyEntry(ctx, id, today, DefaultPharmacyName)
	if err != nil {
		return PharmacyView{}, a.fail(op, err)
	}
	return PharmacyView{Today: today, Entry: entry}, nil
}

// MarketingHome lists the signed-in marketer's linked pharmacies.
func (a *Assembler) MarketingHome(ctx context.Context, marketingID primitive.ObjectID) (view MarketingView, err error) {
	defer a.observe("marketing_home", time.Now(), &err)
	return a.marketing(ctx, "marketing home", marketingID, "", DefaultUnknownPharmacyName)
}

// MarketingDetail lists one marketer's pharmacies for a company user.
func (a *Assembler) MarketingDetail(ctx context.Context, marketingID primitive.ObjectID) (view MarketingView, err error) {
	defer a.observe("marketing_detail", time.Now(), &err)
	return a.marketing(ctx, "marketing detail", marketingID, DefaultMarketingName, DefaultPharmacyName)
}

// marketing builds a MarketingView. An empty ownDefault leaves Name unset.
func (a *Assembler) marketing(ctx context.Context, op string, id primitive.ObjectID, ownDefault, pharmacyDefault string) (MarketingView, error) {
	u, err := a.dir.GetUser(ctx, id)
	if err != nil {
		return MarketingView{}, a.fail(op, err)
	}

	today := a.today()
	entries, err := a.pharmacyEntries(ctx, u.LinkedMachines, today, pharmacyDefault)
	if err != nil {
		return MarketingView{}, a.fail(op, err)
	}

	view := MarketingView{Today: today, ID: u.ID, Pharmacies: entries}
	if ownDefault != "" {
		view.Name = htmlsanitize.DisplayName(u.FullName, ownDefault)
	}
	for _, e := range entries {
		view.Combined = view.Combined.Add(e.Summary)
	}
	return view, nil
}

// CompanyHome totals every count of every pharmacy linked to any marketer.
// Only usage is fetched for linked ids, so an id with usage but no user
// document still counts toward the grand total.
func (a *Assembler) CompanyHome(ctx context.Context) (view CompanyView, err error) {
	defer a.observe("company_home", time.Now(), &err)
	const op = "company home"

	marketers, err := a.dir.ListUsersByRole(ctx, models.RoleMarketing)
	if err != nil {
		return CompanyView{}, a.fail(op, err)
	}

	today := a.today()
	summaries := make([][]usage.Summary, len(marketers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.limit)
	for i, m := range marketers {
		summaries[i] = make([]usage.Summary, len(m.LinkedMachines))
		for j, id := range m.LinkedMachines {
			i, j, id := i, j, id
			g.Go(func() error {
				records, err := a.dir.ListUsage(gctx, id)
				if err != nil {
					return fmt.Errorf("usage for %s: %w", id.Hex(), err)
				}
				summaries[i][j] = usage.Summarize(today, records)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return CompanyView{}, a.fail(op, err)
	}

	view = CompanyView{Today: today, Marketers: make([]MarketerRef, len(marketers))}
	for i, m := range marketers {
		view.GrandTotal += usage.Sum(summaries[i]...)
		view.Marketers[i] = MarketerRef{
			ID:   m.ID,
			Name: htmlsanitize.DisplayName(m.FullName, DefaultMarketingName),
		}
	}
	return view, nil
}

// PharmacyList is every pharmacy's summary, used by the MQTT publisher.
type PharmacyList struct {
	Today      string  `json:"today"`
	Pharmacies []Entry `json:"pharmacies"`
}

// AllPharmacies summarizes every pharmacy user, ordered by _id.
func (a *Assembler) AllPharmacies(ctx context.Context) (list PharmacyList, err error) {
	defer a.observe("all_pharmacies", time.Now(), &err)
	const op = "all pharmacies"

	users, err := a.dir.ListUsersByRole(ctx, models.RolePharmacy)
	if err != nil {
		return PharmacyList{}, a.fail(op, err)
	}
	ids := make([]primitive.ObjectID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}

	today := a.today()
	entries, err := a.pharmacyEntries(ctx, ids, today, DefaultPharmacyName)
	if err != nil {
		return PharmacyList{}, a.fail(op, err)
	}
	return PharmacyList{Today: today, Pharmacies: entries}, nil
}

// pharmacyEntries fetches each pharmacy concurrently and slots results by
// index, so the output follows ids order. Any failure cancels the rest.
func (a *Assembler) pharmacyEntries(ctx context.Context, ids []primitive.ObjectID, today, fallback string) ([]Entry, error) {
	out := make([]Entry, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.limit)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			e, err := a.pharmacyEntry(gctx, id, today, fallback)
			if err != nil {
				return err
			}
			out[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Assembler) pharmacyEntry(ctx context.Context, id primitive.ObjectID, today, fallback string) (Entry, error) {
	u, err := a.dir.GetUser(ctx, id)
	if err != nil {
		return Entry{}, fmt.Errorf("pharmacy %s: %w", id.Hex(), err)
	}
	records, err := a.dir.ListUsage(ctx, id)
	if err != nil {
		return Entry{}, fmt.Errorf("usage for %s: %w", id.Hex(), err)
	}
	return Entry{
		ID:      id,
		Name:    htmlsanitize.DisplayName(u.FullName, fallback),
		Summary: usage.Summarize(today, records),
	}, nil
}

// fail converts any fetch error into a FetchFailure. The cause is logged
// here; callers see only the generic message.
func (a *Assembler) fail(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		a.log.Debug("view assembly canceled", zap.String("view", op))
	} else {
		a.log.Warn("view assembly failed", zap.String("view", op), zap.Error(err))
	}
	return apperr.FetchFailure(op, err)
}

func (a *Assembler) observe(view string, start time.Time, err *error) {
	metrics.ObserveAssembly(view, start, *err)
}

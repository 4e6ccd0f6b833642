/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
	Provides pre-built scenarios that populate the database with a small
	unit for demos and manual testing. Every scenario starts from the same
	unit (two platoons, their sergeants, subordinates and a commander) and
	then drives the real services, so the data it leaves behind went
	through every rule a client request would.

AVAILABLE SCENARIOS:

	unit:              Officers, accounts and yearly credits only
	approval-pipeline: Leaves waiting at each stage of the approval pipeline
	vacation-season:   Scheduled vacations, a course and weekly rests

HOW SCENARIOS WORK:
 1. Reset database (drop and recreate every table)
 2. Create officers and user accounts
 3. Grant yearly credits through the credit ledger
 4. Create leaves, vacations and events through the services, acting
    as the seeded accounts
 5. Dates are relative to the handler's clock, so scenarios never
    create records in the past

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "approval-pipeline"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - server.go: DevRoutes
  - cmd/server/main.go: SEED_DEMO loads "unit" on an empty store
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/schedule"
	"github.com/warp/leave-engine/vacation"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "unit",
		Name:        "Unit",
		Description: "Two platoons with sergeants, subordinates, a commander and yearly credits",
	},
	{
		ID:          "approval-pipeline",
		Name:        "Approval Pipeline",
		Description: "Leaves waiting for the sergeant, waiting for the commander, validated and denied",
	},
	{
		ID:          "vacation-season",
		Name:        "Vacation Season",
		Description: "Scheduled vacation blocks, a course with participants and weekly rests",
	},
}

// Demo accounts. Pass one as X-User-ID.
const (
	DemoAdminID     = "u-cmd"
	DemoSergeant1ID = "u-sgt-1"
	DemoSergeant2ID = "u-sgt-2"
	DemoSilvaID     = "u-silva"
	DemoCostaID     = "u-costa"
	DemoRochaID     = "u-rocha"
)

var demoOfficers = []generic.Officer{
	{ID: "off-cmd", Name: "Cap Lima", Registration: "100001", Rank: "Capitão", Platoon: "CMD", Active: true},
	{ID: "off-sgt-1", Name: "Sgt Souza", Registration: "100101", Rank: "Sargento", Platoon: "1PEL", Active: true},
	{ID: "off-silva", Name: "Sd Silva", Registration: "100102", Rank: "Soldado", Platoon: "1PEL", Active: true},
	{ID: "off-costa", Name: "Sd Costa", Registration: "100103", Rank: "Soldado", Platoon: "1PEL", Active: true},
	{ID: "off-sgt-2", Name: "Sgt Pereira", Registration: "100201", Rank: "Sargento", Platoon: "2PEL", Active: true},
	{ID: "off-rocha", Name: "Sd Rocha", Registration: "100202", Rank: "Soldado", Platoon: "2PEL", Active: true},
	{ID: "off-alves", Name: "Cb Alves", Registration: "100203", Rank: "Cabo", Platoon: "2PEL", Active: false},
}

var demoUsers = []generic.User{
	{ID: DemoAdminID, Name: "Cap Lima", Role: generic.RoleAdmin, OfficerID: "off-cmd", Platoon: "CMD", Active: true},
	{ID: DemoSergeant1ID, Name: "Sgt Souza", Role: generic.RoleSergeant, OfficerID: "off-sgt-1", Platoon: "1PEL", Active: true},
	{ID: DemoSergeant2ID, Name: "Sgt Pereira", Role: generic.RoleSergeant, OfficerID: "off-sgt-2", Platoon: "2PEL", Active: true},
	{ID: DemoSilvaID, Name: "Sd Silva", Role: generic.RoleSubordinate, OfficerID: "off-silva", Platoon: "1PEL", Active: true},
	{ID: DemoCostaID, Name: "Sd Costa", Role: generic.RoleSubordinate, OfficerID: "off-costa", Platoon: "1PEL", Active: true},
	{ID: DemoRochaID, Name: "Sd Rocha", Role: generic.RoleSubordinate, OfficerID: "off-rocha", Platoon: "2PEL", Active: true},
}

// demoCredits is granted to every active non-commander officer for each
// year a scenario touches.
const demoCredits = 2

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	id := h.currentScenarioID()
	if id == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == id {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: id, Name: id})
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Load(r.Context(), req.ScenarioID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase drops all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.setCurrentScenario("")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// Load resets the store and loads scenario id.
func (h *Handler) Load(ctx context.Context, id string) error {
	var load func(context.Context) error
	switch id {
	case "unit":
		load = h.loadUnit
	case "approval-pipeline":
		load = h.loadApprovalPipeline
	case "vacation-season":
		load = h.loadVacationSeason
	default:
		return generic.Invalid("scenario_id", "unknown scenario %q", id)
	}

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	h.setCurrentScenario("")
	if err := load(ctx); err != nil {
		return fmt.Errorf("failed to load scenario %s: %w", id, err)
	}
	h.setCurrentScenario(id)
	h.log().Info("scenario loaded", zap.String("scenario", id))
	return nil
}

// SeedIfEmpty loads the "unit" scenario when no officer exists yet. It
// reports whether it did.
func (h *Handler) SeedIfEmpty(ctx context.Context) (bool, error) {
	officers, err := h.Store.ListOfficers(ctx, true)
	if err != nil {
		return false, err
	}
	if len(officers) > 0 {
		return false, nil
	}
	return true, h.Load(ctx, "unit")
}

func (h *Handler) currentScenarioID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentScenario
}

func (h *Handler) setCurrentScenario(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentScenario = id
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadUnit(ctx context.Context) error {
	for _, o := range demoOfficers {
		if err := h.Store.SaveOfficer(ctx, o); err != nil {
			return err
		}
	}
	for _, u := range demoUsers {
		if err := h.Store.SaveUser(ctx, u); err != nil {
			return err
		}
	}

	today := h.Clock.Today()
	years := []int{today.Year()}
	if next := today.AddDays(90).Year(); next != today.Year() {
		years = append(years, next)
	}

	admin := demoActor(DemoAdminID)
	for _, o := range demoOfficers {
		if !o.Active || o.Platoon == "CMD" {
			continue
		}
		for _, year := range years {
			_, err := h.Ledger.Grant(ctx, admin, generic.GrantInput{
				OfficerID: o.ID,
				Year:      year,
				Delta:     demoCredits,
				Reason:    fmt.Sprintf("Créditos anuais %d", year),
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Handler) loadApprovalPipeline(ctx context.Context) error {
	if err := h.loadUnit(ctx); err != nil {
		return err
	}
	today := h.Clock.Today()

	// Silva: waiting for the sergeant
	if _, err := h.Workflow.Create(ctx, demoActor(DemoSilvaID), leave.CreateInput{
		OfficerID: "off-silva",
		Date:      today.AddDays(7),
		Reason:    leave.GeneralCommander(),
	}); err != nil {
		return err
	}

	// Costa: approved by the sergeant, waiting for the commander
	costa, err := h.Workflow.Create(ctx, demoActor(DemoCostaID), leave.CreateInput{
		OfficerID: "off-costa",
		Date:      today.AddDays(10),
		Reason:    leave.CompanyCommander("Aniversário de casamento"),
	})
	if err != nil {
		return err
	}
	if _, err := h.Workflow.SergeantDecision(ctx, demoActor(DemoSergeant1ID), costa.Record.ID,
		leave.SergeantApprove, "De acordo."); err != nil {
		return err
	}

	// Rocha: validated, consuming one credit
	rocha, err := h.Workflow.Create(ctx, demoActor(DemoRochaID), leave.CreateInput{
		OfficerID: "off-rocha",
		Date:      today.AddDays(14),
		Reason:    leave.GeneralCommander(),
	})
	if err != nil {
		return err
	}
	if _, err := h.Workflow.SergeantDecision(ctx, demoActor(DemoSergeant2ID), rocha.Record.ID,
		leave.SergeantApprove, "Escala coberta."); err != nil {
		return err
	}
	if _, err := h.Workflow.AdminDecision(ctx, demoActor(DemoAdminID), rocha.Record.ID,
		leave.AdminValidate, "Validado."); err != nil {
		return err
	}

	// Silva: denied by the sergeant
	denied, err := h.Workflow.Create(ctx, demoActor(DemoSilvaID), leave.CreateInput{
		OfficerID: "off-silva",
		Date:      today.AddDays(3),
		Reason:    leave.Other("Resolver pendências no cartório"),
	})
	if err != nil {
		return err
	}
	_, err = h.Workflow.SergeantDecision(ctx, demoActor(DemoSergeant1ID), denied.Record.ID,
		leave.SergeantDeny, "Efetivo reduzido nesta data.")
	return err
}

func (h *Handler) loadVacationSeason(ctx context.Context) error {
	if err := h.loadUnit(ctx); err != nil {
		return err
	}
	today := h.Clock.Today()
	admin := demoActor(DemoAdminID)

	vacations := []vacation.ScheduleInput{
		{OfficerID: "off-silva", StartDate: today.AddDays(30), DurationDays: 30},
		{OfficerID: "off-rocha", StartDate: today.AddDays(15), DurationDays: 15},
		{OfficerID: "off-rocha", StartDate: today.AddDays(75), DurationDays: 15},
	}
	for _, in := range vacations {
		in.ReferenceYear = today.Year()
		if _, err := h.Vacations.Schedule(ctx, admin, in); err != nil {
			return err
		}
	}

	if _, err := h.Events.Create(ctx, demoActor(DemoSergeant1ID), schedule.CreateInput{
		Type:                  schedule.TypeCourse,
		Title:                 "Curso de Atualização em Tiro",
		Date:                  today.AddDays(5),
		StartTime:             "08:00",
		EndTime:               "17:00",
		Location:              "Estande do Batalhão",
		ParticipantOfficerIDs: []string{"off-costa", "off-sgt-1"},
	}); err != nil {
		return err
	}

	// Weekly rests are registered directly by the sergeant.
	rests := []struct {
		officerID string
		reason    leave.Reason
		inDays    int
	}{
		{"off-costa", leave.FullWeeklyRest(), 2},
		{"off-silva", leave.HalfWeeklyRest(leave.ShiftMorning), 4},
	}
	for _, rest := range rests {
		if _, err := h.Workflow.Create(ctx, demoActor(DemoSergeant1ID), leave.CreateInput{
			OfficerID: rest.officerID,
			Date:      today.AddDays(rest.inDays),
			Reason:    rest.reason,
		}); err != nil {
			return err
		}
	}
	return nil
}

func demoActor(userID string) generic.Actor {
	for _, u := range demoUsers {
		if u.ID == userID {
			return generic.ActorFromUser(u)
		}
	}
	panic("unknown demo user " + userID)
}

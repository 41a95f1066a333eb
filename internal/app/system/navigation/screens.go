// Package navigation maps a resolved role to the screens it may open and
// guards routes with that capability check.
package navigation

import (
	"github.com/dalemusser/pharmausage/internal/app/system/session"
	"github.com/dalemusser/pharmausage/internal/domain/models"
)

// Screen names one client screen.
type Screen string

const (
	ScreenLogin           Screen = "login"
	ScreenForgotPassword  Screen = "forgot-password"
	ScreenPharmacyHome    Screen = "pharmacy-home"
	ScreenMarketingHome   Screen = "marketing-home"
	ScreenCompanyHome     Screen = "company-home"
	ScreenPharmacyDetail  Screen = "pharmacy-detail"
	ScreenMarketingDetail Screen = "marketing-detail"
)

// ScreenSet is an ordered set of screens; the first entry is the home screen.
type ScreenSet []Screen

// Contains reports whether s is in the set.
func (set ScreenSet) Contains(s Screen) bool {
	for _, x := range set {
		if x == s {
			return true
		}
	}
	return false
}

// Home is the screen shown first after routing.
func (set ScreenSet) Home() Screen {
	if len(set) == 0 {
		return ScreenLogin
	}
	return set[0]
}

var (
	loginScreens     = ScreenSet{ScreenLogin, ScreenForgotPassword}
	pharmacyScreens  = ScreenSet{ScreenPharmacyHome}
	marketingScreens = ScreenSet{ScreenMarketingHome, ScreenPharmacyDetail}
	companyScreens   = ScreenSet{ScreenCompanyHome, ScreenMarketingDetail, ScreenPharmacyDetail}
)

// Allowed returns the screens role may open. Unknown or empty roles get
// the login screens only. The returned set is a copy.
func Allowed(role string) ScreenSet {
	var set ScreenSet
	switch role {
	case models.RolePharmacy:
		set = pharmacyScreens
	case models.RoleMarketing:
		set = marketingScreens
	case models.RoleCompany:
		set = companyScreens
	default:
		set = loginScreens
	}
	return append(ScreenSet(nil), set...)
}

// Home returns the first screen for role.
func Home(role string) Screen {
	return Allowed(role).Home()
}

// CanNavigate reports whether role may open s.
func CanNavigate(role string, s Screen) bool {
	return Allowed(role).Contains(s)
}

// ForSession returns the screens available to s. Only a session with a
// resolved role is routed by role; every other state gets the login set.
func ForSession(s session.Session) ScreenSet {
	if !s.HasRole() {
		return Allowed("")
	}
	return Allowed(s.Role())
}

// Route is the routing decision for a session as reported to clients.
type Route struct {
	State   session.State `json:"state"`
	Role    string        `json:"role,omitempty"`
	Name    string        `json:"name,omitempty"`
	Home    Screen        `json:"home"`
	Screens ScreenSet     `json:"screens"`
}

// Describe returns the routing decision for s.
func Describe(s session.Session) Route {
	set := ForSession(s)
	return Route{
		State:   s.State(),
		Role:    s.Role(),
		Name:    s.Name(),
		Home:    set.Home(),
		Screens: set,
	}
}

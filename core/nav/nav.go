// Package nav resolves the sidebar navigation visible to an account role.
package nav

import (
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/account"
)

type (
	Item struct {
		Title    string
		Href     string
		Label    string
		Icon     string
		External bool
		Disabled bool
		Visible  []account.Role
	}

	Section struct {
		Title string
		Items []Item
	}

	// Config is the static navigation, built once at startup.
	Config struct {
		Sections []Section
	}

	RenderedItem struct {
		Title     string `json:"title"`
		Href      string `json:"href,omitempty"`
		Label     string `json:"label,omitempty"`
		Icon      string `json:"icon,omitempty"`
		External  bool   `json:"external"`
		Navigable bool   `json:"navigable"`
		Active    bool   `json:"active"`
	}

	RenderedSection struct {
		Title string         `json:"title"`
		Items []RenderedItem `json:"items"`
	}
)

var (
	allRoles      = []account.Role{account.RoleAdmin, account.RoleTeacher, account.RoleStudent, account.RoleParent}
	adminTeachers = []account.Role{account.RoleAdmin, account.RoleTeacher}
	admins        = []account.Role{account.RoleAdmin}
)

// DefaultConfig returns the school sidebar.
func DefaultConfig() Config {
	return Config{Sections: []Section{
		{
			Items: []Item{
				{Title: "Admin Dashboard", Href: "/admin", Visible: admins},
				{Title: "Student", Href: core.ListStudentsPath, Visible: adminTeachers},
				{Title: "Teacher", Href: core.ListTeachersPath, Visible: adminTeachers},
				{Title: "Parent", Href: core.ListParentsPath, Visible: adminTeachers},
				{Title: "Subject", Href: core.ListSubjectsPath, Visible: admins},
				{Title: "Class", Href: core.ListClassesPath, Visible: adminTeachers},
				{Title: "Grade", Href: core.ListGradesPath, Visible: adminTeachers},
				{Title: "Lesson", Href: core.ListLessonsPath, Visible: adminTeachers},
				{Title: "Exam", Href: core.ListExamsPath, Visible: allRoles},
				{Title: "Assignment", Href: "/list/assignments", Visible: allRoles},
				{Title: "Attendance", Href: "/list/attendance", Visible: allRoles},
				{Title: "Results", Href: "/list/results", Visible: allRoles},
			},
		},
	}}
}

func (it Item) visibleTo(role account.Role) bool {
	if role == "" {
		return false
	}
	for _, r := range it.Visible {
		if r == role {
			return true
		}
	}
	return false
}

// Resolver filters a Config by role.
// Fallback replaces an empty role only when AllowFallback is set (development mode).
type Resolver struct {
	Config        Config
	Fallback      account.Role
	AllowFallback bool
}

func NewResolver(conf Config, fallback account.Role, allowFallback bool) *Resolver {
	return &Resolver{Config: conf, Fallback: fallback, AllowFallback: allowFallback && fallback.Valid()}
}

// EffectiveRole returns the role navigation is resolved for.
func (r *Resolver) EffectiveRole(role account.Role) account.Role {
	if role == "" && r.AllowFallback {
		return r.Fallback
	}
	return role
}

// Visible returns the items role may see. Items without an href, or disabled, are kept but not navigable.
// Sections left without items are omitted.
func (r *Resolver) Visible(role account.Role, currentPath string) []RenderedSection {
	role = r.EffectiveRole(role)
	sections := make([]RenderedSection, 0, len(r.Config.Sections))
	for _, sec := range r.Config.Sections {
		var items []RenderedItem
		for _, it := range sec.Items {
			if !it.visibleTo(role) {
				continue
			}
			items = append(items, RenderedItem{
				Title:     it.Title,
				Href:      it.Href,
				Label:     it.Label,
				Icon:      it.Icon,
				External:  it.External,
				Navigable: it.Href != "" && !it.Disabled,
				Active:    it.Href != "" && it.Href == currentPath,
			})
		}
		if len(items) > 0 {
			sections = append(sections, RenderedSection{Title: sec.Title, Items: items})
		}
	}
	return sections
}

// Allows reports whether role may navigate to href.
func (r *Resolver) Allows(role account.Role, href string) bool {
	role = r.EffectiveRole(role)
	for _, sec := range r.Config.Sections {
		for _, it := range sec.Items {
			if it.Href == href && !it.Disabled && it.visibleTo(role) {
				return true
			}
		}
	}
	return false
}

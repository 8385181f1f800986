package application

import (
	"github.com/ericfisherdev/htmlmgr/internal/domain/model"
	"github.com/ericfisherdev/htmlmgr/internal/domain/port/driven"
)

// Selectors and state markers used by the wiring rules.
const (
	selCloseSidebar    = "[data-close-sidebar]"
	selSidebar         = ".sidebar"
	classSidebarActive = "sidebar--active"

	selMenuToggle   = ".nav__menu-toggle"
	selMenu         = ".nav__menu"
	classMenuActive = "nav__menu--active"
)

// wiringRules holds the behaviour attached for each wiring kind. Rules only
// look inside the container they are given, and tolerate missing elements.
var wiringRules = map[model.WiringKind]func(container driven.Element){
	model.WiringSidebar: wireSidebar,
	model.WiringHeader:  wireHeader,
}

// wire runs the rule for kind against container. Kinds without a rule are a
// no-op.
func wire(kind model.WiringKind, container driven.Element) {
	if rule, ok := wiringRules[kind]; ok {
		rule(container)
	}
}

func wireSidebar(container driven.Element) {
	closeControl := container.Query(selCloseSidebar)
	if closeControl == nil {
		return
	}
	closeControl.OnClick(func() {
		if sidebar := container.Query(selSidebar); sidebar != nil {
			sidebar.RemoveClass(classSidebarActive)
		}
	})
}

func wireHeader(container driven.Element) {
	toggle := container.Query(selMenuToggle)
	menu := container.Query(selMenu)
	if toggle == nil || menu == nil {
		return
	}
	toggle.OnClick(func() {
		menu.ToggleClass(classMenuActive)
	})
}

package model

// WiringKind identifies the behaviour attached to a mount point after a
// fragment has been injected into it.
type WiringKind string

const (
	WiringNone    WiringKind = "none"
	WiringSidebar WiringKind = "sidebar" // Close control clears the sidebar's active marker.
	WiringHeader  WiringKind = "header"  // Menu toggle flips the menu's active marker.
)

// Well-known mount point identifiers.
const (
	MountPointSidebar = "sidebar-container"
	MountPointHeader  = "header-container"
)

// WiringKindFor resolves the wiring kind for a mount point identifier.
// Unknown identifiers resolve to WiringNone.
func WiringKindFor(mountPointID string) WiringKind {
	switch mountPointID {
	case MountPointSidebar:
		return WiringSidebar
	case MountPointHeader:
		return WiringHeader
	default:
		return WiringNone
	}
}

// BuildTask names one step of the asset pipeline.
type BuildTask string

const (
	TaskClean        BuildTask = "clean"
	TaskStyles       BuildTask = "styles"
	TaskBannerStyles BuildTask = "banner-styles"
	TaskPages        BuildTask = "pages"
	TaskAssets       BuildTask = "assets"
)

// FullBuild is the task series run by a complete build, in order.
var FullBuild = []BuildTask{TaskClean, TaskStyles, TaskBannerStyles, TaskPages, TaskAssets}

// BuildStatus represents the state of a build run.
type BuildStatus string

const (
	BuildStatusRunning   BuildStatus = "running"
	BuildStatusSucceeded BuildStatus = "succeeded"
	BuildStatusFailed    BuildStatus = "failed"
)

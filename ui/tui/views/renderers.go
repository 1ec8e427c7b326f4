package views

import (
	"hostwatch/ui/tui/state"
)

func RenderMenu(s state.AppState, width, height, cursor int, animCursor float64, mouseX, mouseY int) string {
	v := MenuView{}
	return v.Render(s, ViewProps{
		Width:      width,
		Height:     height,
		MenuCursor: cursor,
		AnimCursor: animCursor,
		MouseX:     mouseX,
		MouseY:     mouseY,
	})
}

func RenderDashboard(s state.AppState, props ViewProps) string {
	return DashboardView{}.Render(s, props)
}

func RenderTerminal(s state.AppState, width, height, scrollY int) string {
	v := TerminalView{}
	return v.Render(s, ViewProps{
		Width:   width,
		Height:  height,
		ScrollY: scrollY,
	})
}

func RenderHost(s state.AppState, props ViewProps) string {
	return HostView{}.Render(s, props)
}

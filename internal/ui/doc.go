// Package ui contains the Fyne desktop front end. It submits sources to a
// download controller and renders one row per task from status events.
package ui

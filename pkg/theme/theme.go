// Package theme contains the page colors the application can be started with
package theme

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// Default is the color used when none was requested
	Default = "lime"
	// Random requests a color picked at startup
	Random = "random"
)

var colors = map[string]string{
	"red":      "#e74c3c",
	"green":    "#16a085",
	"blue":     "#89CFF0",
	"blue2":    "#30336b",
	"pink":     "#f4c2c2",
	"darkblue": "#130f40",
	"lime":     "#C1FF9C",
}

// Color is a named page color
type Color struct {
	Name string
	Code string
}

// Supported returns the names of all supported colors in alphabetical order
func Supported() []string {
	names := make([]string, 0, len(colors))
	for n := range colors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the color with the given name
func Lookup(name string) (Color, bool) {
	code, ok := colors[name]
	return Color{Name: name, Code: code}, ok
}

// Select returns the requested color, Default if none was requested. For
// Random the color is chosen by pick which receives the number of supported
// colors and must return an index below it.
func Select(requested string, pick func(n int) int) (Color, error) {
	switch requested {
	case "":
		requested = Default

	case Random:
		names := Supported()
		requested = names[pick(len(names))]
	}

	c, ok := Lookup(requested)
	if !ok {
		return Color{}, fmt.Errorf(
			"color not supported: received %q, expected one of %s",
			requested, strings.Join(Supported(), ","),
		)
	}

	return c, nil
}

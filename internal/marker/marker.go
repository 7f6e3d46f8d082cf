// Package marker defines the Plugin Marker: a declarative tag meaning
// "force-load this type before anything else".
//
// A type opts in by embedding Preload. Embedding promotes the marker method,
// so any type that embeds a marked type is marked as well.
package marker

import "reflect"

// Preloader is implemented by every marked type.
type Preloader interface {
	preloadMarker()
}

// Preload is embedded to mark a type.
type Preload struct{}

func (Preload) preloadMarker() {}

var preloaderType = reflect.TypeOf((*Preloader)(nil)).Elem()

// Carries reports whether t, or a pointer to t, carries the marker.
func Carries(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Implements(preloaderType) {
		return true
	}
	if t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface {
		return reflect.PointerTo(t).Implements(preloaderType)
	}
	return false
}

// CarriesValue is Carries for the dynamic type of v.
func CarriesValue(v any) bool {
	return Carries(reflect.TypeOf(v))
}

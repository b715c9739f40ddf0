package cache

import (
	"fmt"
	"sort"
	"strings"
)

// Key is an opaque structured cache key. Keys are built only through the
// typed constructors below so identical queries always collide into the
// same slot regardless of call site.
type Key struct {
	namespace string
	suffix    string
}

// Namespace identifies the data class of the key (used as a metrics label).
func (k Key) Namespace() string { return k.namespace }

func (k Key) String() string {
	if k.suffix == "" {
		return k.namespace
	}
	return k.namespace + "_" + k.suffix
}

// CategoriesKey addresses the full category list.
func CategoriesKey() Key {
	return Key{namespace: "categories"}
}

// ServicesKey addresses the service list of one category.
func ServicesKey(categoryID string) Key {
	return Key{namespace: "services", suffix: categoryID}
}

// StaffKey addresses the staff list able to perform one service variation.
func StaffKey(variationID string) Key {
	return Key{namespace: "staff", suffix: variationID}
}

// AddonsKey addresses the add-ons applicable to one service.
func AddonsKey(serviceID string) Key {
	return Key{namespace: "addons", suffix: serviceID}
}

// AvailabilityKey addresses one resolver batch. Add-on IDs are sorted
// before joining so the same add-on set produces the same key in any
// selection order.
func AvailabilityKey(staffID, serviceID, variationID string, addonIDs []string, start, end string) Key {
	addons := "none"
	if len(addonIDs) > 0 {
		sorted := make([]string, len(addonIDs))
		copy(sorted, addonIDs)
		sort.Strings(sorted)
		addons = strings.Join(sorted, "+")
	}
	return Key{
		namespace: "availability",
		suffix:    fmt.Sprintf("%s_%s_%s_%s_%s_%s", staffID, serviceID, variationID, addons, start, end),
	}
}

// Package permutation selects a compiled permutation from the current environment.
//
// A permutation is one compiled variant of an application, addressed by an
// ordered tuple of deferred-binding property values (user agent, locale, ...).
// The package has three parts:
//
//	Space   registry of properties, their legal values and value providers
//	Table   tree keyed by property values whose leaves are strong names
//	Engine  walks the properties in a fixed order and descends the Table
//
// Typical use:
//
//	space := permutation.NewSpace()
//	space.Register("user.agent", []string{"gecko", "webkit"}, detectAgent)
//	space.Register("locale", []string{"default", "en"}, detectLocale)
//
//	table := permutation.NewTable(2)
//	table.Add([]string{"gecko", "en"}, "AB12CD")
//
//	engine, err := permutation.NewEngine(space, table, "user.agent", "locale")
//	strongName, err := engine.Resolve()
//
// The resolution order is fixed when the Engine is built and must match the
// order the Table was populated in. Providers are invoked on every Resolve; the
// engine caches nothing.
//
// A provider value outside the property's legal set invokes the registered
// PropertyErrorFunc exactly once with the sorted legal values and aborts the
// resolution with *errors.PropertyError.
package permutation

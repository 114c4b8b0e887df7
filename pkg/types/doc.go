// Package types defines the Record entity, the Store interface that storage
// backends implement, list filters and sort keys, configuration, and the
// standard error values shared by every gourmet package.
package types

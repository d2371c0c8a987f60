// Package filter decides which saved objects of a bundle take part in an
// import. It supports exclusion by type and id, data-source partitioning by
// naming convention, and the removal of "study" visualizations, as well as
// panel-level cleaning of a dashboard's layout.
//
// The package is built around the [Filter] interface and [Chain] type, which
// allow composable, ordered filter application.
package filter

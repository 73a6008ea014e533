// Package middleware wraps the gallery API handlers with W3C
// extended-format request logging and Prometheus request metrics.
// Item routes carry an image name in the path; the logger can suppress
// them and the metrics middleware collapses the name into a {name}
// placeholder to bound label cardinality.
package middleware

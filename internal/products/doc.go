// Package products defines the immutable product records the pipeline tags
// and the CSV source they are typically read from.
package products

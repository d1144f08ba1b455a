// Command tagforge assigns controlled-vocabulary tags to product catalogs.
package main

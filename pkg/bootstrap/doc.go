/*
Package bootstrap draws a uniform-with-replacement row resample of a
training table, for ensemble workers configured to bag their local shard
before fitting (spec.md §4.3).
*/
package bootstrap

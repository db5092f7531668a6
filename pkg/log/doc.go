/*
Package log provides structured logging for every chimera process using
zerolog.

Init(Config) sets the global level and output format once at process
startup (JSON for production, a console writer for interactive use), then
every component gets a child logger carrying its own field:

	log.WithComponent("ensemble-master")   // which piece of code is logging
	log.WithNodeID("worker-2")             // which fleet node it concerns
	log.WithRequestID(reqID)               // which fit/predict call it belongs to

A handler building a response for one client request typically chains two
of these, e.g. WithComponent("parameter-server-master").With().Str(...),
to get both the calling code and the specific fit request in every line.
*/
package log

/*
Package csvdata loads the headered CSV training files that live alongside
each worker container (spec.md §6's persistent state layout) into
api.FitInput values, and supports the progressive sample-size fallback
SGDWorker uses to seed the parameter server (spec.md §4.4).
*/
package csvdata

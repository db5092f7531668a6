/*
Package api defines the wire shapes exchanged between chimera clients,
masters, and workers, plus the error envelope and typed error kinds every
HTTP handler in the repository converts its failures into.

Frame is the column-major table every fit/predict body is built from.
FitInput, PredictInput, PredictOutput, FitStepInput, FitStepOutput, and
FitRequestDataSampleOutput are the JSON bodies listed in the external
interfaces; their field tags match the wire names exactly so the Go
structs round-trip against any conforming client or worker.
*/
package api

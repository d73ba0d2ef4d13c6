/*
Package log provides structured logging for Hank using zerolog.

A process calls Init once with the level and format taken from command-line
flags; every package then derives child loggers with fixed fields:

	log.Init(log.Config{Level: log.ParseLevel("debug"), JSONOutput: true})

	logger := log.WithComponent("conductor")
	rgLogger := log.WithRingGroup(logger, "search")
	hostLogger := log.WithHost(rgLogger, "hank-01:12345")
	hostLogger.Info().
		Str("command", "GO_TO_IDLE").
		Msg("Enqueued command")

Console output is the default and is meant for operators at a terminal; JSON
output is meant for log shipping. Until Init runs the global Logger discards
everything, which keeps library use and tests quiet.

Fields used across the code base:

	component   conductor, agent, api, collector, cli
	ring_group  ring group being managed
	host        host address
	ring        ring number
	command     host command enqueued or executed
	state       host lifecycle state
*/
package log

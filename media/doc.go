// Package media holds the media model of the bot and turns arbitrary audio
// and video into canonical FLAC audio with ffmpeg, then reads the audio
// profile of the result with ffprobe.
//
// Both tools run as subprocesses through an Executor, a
// provider.RequestResponse over process.Command, so the concurrency limit,
// logging, tracing and metrics are the provider middlewares:
//
//	exec := media.NewExecutor(cfg, log, metrics)
//	tc := media.NewTranscoder(exec, cfg)
//	flac, err := tc.ToLosslessAudio(ctx, data)
//	profile, err := media.NewProber(exec, cfg).Probe(ctx, flac)
package media

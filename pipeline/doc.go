// Package pipeline turns one inbound media message into ordered reply
// segments.
//
// A run walks a fixed state machine:
//
//	Received -> Fetched -> Recognized -> Chunked                      (image)
//	Received -> Fetched -> Transcoded -> Probed -> Recognized -> Chunked (audio, video)
//	Received -> Rejected                                               (duration guard)
//	any stage failure -> Failed
//
// Every run starts from scratch; a Pipeline holds only its injected
// collaborators and may serve concurrent runs. Each stage is bounded by
// Config.StageTimeout. Failures are not retried; the caller decides how to
// answer the sender.
//
// # Usage
//
//	p := pipeline.New(lineClient, transcoder, prober, gateway, cfg,
//		pipeline.WithLogger(log), pipeline.WithMetrics(metrics))
//	res, err := p.Run(ctx, pipeline.Event{Kind: media.KindAudio, MessageID: id, Duration: d})
package pipeline

// Package logging provides structured logging for perceptd.
//
// # Overview
//
// The package wraps zap with:
//   - A Trace level (-2, below Debug)
//   - Stdout output, plus an optional OpenTelemetry log bridge
//   - Context field injection (trace_id, span_id, user.id, request.id)
//   - Secret redaction by field name and value pattern
//   - Transcript masking unless content logging is enabled
//   - Per-level sampling (errors never sampled)
//
// # Usage
//
//	cfg, err := logging.FromAppConfig(appCfg.Logging)
//	if err != nil {
//	    return err
//	}
//	logger, err := logging.NewLogger(cfg, nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithUserID(ctx, "u-42")
//	logger.Info(ctx, "utterance analyzed", zap.String("mood", "positive"))
//
// Output:
//
//	{
//	  "ts": "2026-10-19T10:15:30.000Z",
//	  "level": "info",
//	  "msg": "utterance analyzed",
//	  "service": "perceptd",
//	  "user.id": "u-42",
//	  "mood": "positive"
//	}
//
// Libraries that accept *zap.Logger get Underlying().
//
// # Secret Redaction
//
// The transcription and Qdrant API keys are config.Secret values; log them
// with Secret, which records only the length. The encoder additionally masks
// any field named like a credential and any value matching a bearer or
// api_key pattern.
//
// Fields carrying user speech (transcript, text, query, utterance) are
// replaced by their rune count, for example [TEXT:20]. Set
// logging.log_content to keep them.
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	svc, _ := perception.NewService(engine, tagger, sink, tl.Logger)
//	tl.AssertLogged(t, zapcore.WarnLevel, "degraded")
//	tl.AssertNoSecrets(t)
//
// # Concurrency Safety
//
// Logger is safe for concurrent use. Child loggers (With, Named) do not affect
// their parent.
package logging

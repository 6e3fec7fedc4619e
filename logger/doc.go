// Package logger wraps zerolog for the bot.
//
//	logging:
//	  level: info
//	  format: json
//
// Components take a *Logger and tag it once:
//
//	log := app.Logger.WithComponent("pipeline")
//	log.WithContext(ctx).Info("pipeline finished", logger.Fields(logger.FieldSegments, 3))
package logger

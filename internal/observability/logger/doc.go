// Package logger provee el logger zap del proceso con scoping por contexto.
//
//   - Global: una instancia inicializada con Init() en main.
//   - Contexto: los middlewares HTTP guardan un logger con request_id via ToContext;
//     handlers y services lo leen con From(ctx).
//   - Paquetes de dominio (session, auth, jwt) reciben *zap.Logger por sus Deps y usan
//     OrGlobal cuando no se provee uno.
//
// Uso:
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, ServiceName: "gateway"})
//	defer logger.Sync()
//
//	log := logger.From(ctx)
//	log.Info("script generated", logger.UserID(claims.Subject))
package logger

package logger

import (
	"go.uber.org/zap"
)

// =================================================================================
// HTTP
// =================================================================================

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Route(v string) zap.Field     { return zap.String("route", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }
func Bytes(v int) zap.Field        { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field  { return zap.String("client_ip", v) }
func UserAgent(v string) zap.Field { return zap.String("user_agent", v) }

// =================================================================================
// DOMINIO (sesión / auth)
// =================================================================================

// UserID es el subject del token o de la identidad.
func UserID(v string) zap.Field { return zap.String("user_id", v) }

func Email(v string) zap.Field { return zap.String("email", v) }

// Event es el tipo de transición de sesión (SIGNED_IN, TOKEN_REFRESHED, ...).
func Event(v string) zap.Field { return zap.String("event", v) }

// State es el estado del coordinador de auth.
func State(v string) zap.Field { return zap.String("state", v) }

// Attempt identifica un intento de login.
func Attempt(v string) zap.Field { return zap.String("attempt_id", v) }

// Scheme del deep link recibido.
func Scheme(v string) zap.Field { return zap.String("scheme", v) }

func Kid(v string) zap.Field     { return zap.String("kid", v) }
func Issuer(v string) zap.Field  { return zap.String("iss", v) }
func Feature(v string) zap.Field { return zap.String("feature", v) }
func Code(v string) zap.Field    { return zap.String("code", v) }

// Generation del commit de sesión o de resolución de perfil.
func Generation(v uint64) zap.Field { return zap.Uint64("generation", v) }

// =================================================================================
// CAPAS
// =================================================================================

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Layer(v string) zap.Field     { return zap.String("layer", v) }

// =================================================================================
// GENÉRICOS
// =================================================================================

// Err usa la key estándar "error".
func Err(err error) zap.Field               { return zap.Error(err) }
func Count(v int) zap.Field                 { return zap.Int("count", v) }
func Key(v string) zap.Field                { return zap.String("key", v) }
func String(k, v string) zap.Field          { return zap.String(k, v) }
func Int(k string, v int) zap.Field         { return zap.Int(k, v) }
func Bool(k string, v bool) zap.Field       { return zap.Bool(k, v) }
func Any(k string, v interface{}) zap.Field { return zap.Any(k, v) }

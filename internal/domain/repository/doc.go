// Package repository define los contratos de lectura de registros derivados de la sesión.
//
// El core de auth solo lee: el perfil gamificado del usuario (para armar el UserView)
// y el "creator universe" que usa generate-ideas. Las escrituras pertenecen a otros
// colaboradores y no viven acá.
//
// Implementaciones:
//
//	profile.PGRepository     -> Postgres via pgx (tablas profiles / creator_universe)
//	profile.RESTRepository   -> PostgREST del identity provider con el token del usuario
//	profile.MemoryRepository -> tests y modo sin base
package repository

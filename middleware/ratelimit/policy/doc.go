// Package policy classifica paths em categorias e guarda a tabela estática
// categoria -> política (quota, janela, violações, bloqueio).
//
// A tabela é montada no startup (defaults compilados, opcionalmente sobrepostos
// por um arquivo YAML) e nunca é alterada depois.
package policy

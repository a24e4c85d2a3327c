// Package application contém os casos de uso (regras de aplicação) para admissão
// de requests e limite de concorrência.
//
// Ele depende do pacote domain e não conhece net/http.
// Ex.: Service.Decide(req) classifica, consulta a política, conta na janela e
// escala violações, devolvendo uma domain.Decision. Qualquer falha interna
// resulta em fail-open (Allowed=true, Degraded=true).
package application

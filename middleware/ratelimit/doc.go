// Package ratelimit fornece adapters HTTP (net/http) para admissão por categoria
// e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - policy: classificação path -> categoria e tabela de políticas
//   - application: casos de uso (decisão allow/deny, acquire/timeout) sem net/http
//   - infra: implementações concretas (janelas, violações, stats, métricas, semáforo)
//   - ratelimit (este pacote): middlewares HTTP + extração da origem + tradução
//     da decisão para status/headers/JSON
//
// Fluxo no gateway:
//
//  1. Extrai a origem do cliente (X-Forwarded-For/X-Real-IP/RemoteAddr)
//  2. Chama a camada application para obter a decisão
//  3. Se negado, responde 429 com headers X-RateLimit-* e corpo JSON
//  4. Se permitido, anexa os headers informativos e chama o próximo handler
//
// Todo o estado é local ao processo: com N réplicas a cota efetiva é N vezes a
// configurada e bloqueios não se propagam entre réplicas.
package ratelimit

// Package middleware groups the Fiber middleware mounted in front of every feature.
//
//   - rayid: tags each request with an X-Ray-ID, reused from the caller when present,
//     so request logs and report queries can be correlated.
//   - auth: rejects requests without the configured X-API-Key. An empty key leaves
//     the report public, which suits a plant-local deployment.
//
// Swagger is mounted between the two, so the API documentation stays public.
package middleware

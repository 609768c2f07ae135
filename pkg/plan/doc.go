/*
Package plan implements CodeBatch's plan and pipeline model:
validating a plan.json's task graph (unique IDs, acyclic
backward-only deps, registered executor types) and loading the
pipelines.yaml bundle that generates one from a named template such as
"full".
*/
package plan

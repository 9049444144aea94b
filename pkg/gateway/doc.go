/*
Package gateway is the facade over the cloud control-plane operations the
orchestrator needs: scaling-group capacity, instance and target health, the
forwarding rule, and the small persistent key-value store that holds the
deployment state and discovery data.

Two implementations exist:

  - AWSGateway maps the interfaces onto Auto Scaling groups, ELBv2 target
    groups and listeners, and SSM Parameter Store.
  - MemoryGateway is a fully in-memory implementation used by tests and by
    dry runs, seeded either by hand or from live reads.

Mutating calls on the AWS implementation are retried a bounded number of
times; callers see a single hard failure. Read paths are not retried, since
health polling already loops.
*/
package gateway

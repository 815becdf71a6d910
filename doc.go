/*
Package ddns keeps Cloudflare DNS address records pointed at the current address of the host.

Usage will always start with [ddns.New],
which takes the zone name, the [ManagedRecord] list, and a [RecordStore] option such as [UsingCloudflare].
Each call to [Client.RunDDNS] (or [Client.Reconcile] for the detailed [Report]) runs one pass:
the address of each family is looked up once through the [Resolver],
and every record is created, updated or left unchanged to match it.

A failing record does not stop the others.
Rejected credentials abort the remainder of the pass.

[Scheduler] repeats passes at a fixed cadence, shortening each wait by the time the pass took.
[Client.Check] reports the current address without changing any record.

Records and credentials are usually read from a JSON or YAML file with [LoadConfig].
*/
package ddns

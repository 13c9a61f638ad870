// pipeline sequences the stages that bring a test host into existence and
// the stages that take it away again.
//
// # Overview
//
// A run targets exactly one host, <prefix>.aopstest.com. Every stage blocks
// until its external commands exit. Between stages an interactive run waits
// for the operator; a CI run does not.
//
// Lifecycle: INIT -> stages -> DONE, or FAILED from whichever stage was
// active. FAILED is terminal and no later stage runs.
//
// # Phase: Create
//
//  1. CLONE_REPOS - terramate and ansible checkouts, reused when present
//  2. STACK_CREATE_APPLY - stack directory, main.tf from the template, commit
//     and push, terraform init, then apply (planned and confirmed outside CI)
//  3. INVENTORY_UPDATE - host added to inventory.yml and emails.yml
//  4. CONFIG_MANAGEMENT_RUN - initial_setup.yml then web_setup.yml
//  5. DATA_BOOTSTRAP - ssh-import-db.sh
//
// # Phase: Destroy
//
//  1. CLONE_REPOS - as above
//  2. STACK_DESTROY - terraform destroy, stack directory removed, commit and push
//  3. INVENTORY_CLEANUP - host removed from inventory.yml and emails.yml
//
// Nothing is rolled back when a stage fails. Every stage can be re-run
// safely, so the remedy is to run the same command again.
//
// Two concurrent runs against the same repositories are not coordinated;
// the loser's git push is rejected and surfaces as an ordinary failure.
package pipeline

package neonevm

// ABI fragments for the externally-deployed contracts. The flash-loan
// contract and the ERC-20-for-SPL token are fixed deployments; only the
// entry points this service calls are declared.

const flashLoanABIJSON = `[
  {"type":"function","name":"flashLoanSimple","stateMutability":"nonpayable","inputs":[
    {"name":"token","type":"address"},
    {"name":"amount","type":"uint256"},
    {"name":"instructionData1","type":"bytes"},
    {"name":"instructionData2","type":"bytes"}],"outputs":[]},
  {"type":"function","name":"getNeonAddress","stateMutability":"view","inputs":[
    {"name":"account","type":"address"}],"outputs":[{"name":"","type":"bytes32"}]},
  {"type":"function","name":"lastLoan","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"lastLoanFee","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

const erc20ABIJSON = `[
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[
    {"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[
    {"name":"to","type":"address"},
    {"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`
